package router

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/shandysiswandi/otpgate/internal/pkg/ratelimit"
)

// RateLimit limits requests per client IP for the route it is attached to.
// When the limiter itself fails the request is let through.
func RateLimit(limiter ratelimit.Limiter, name string, rule ratelimit.Rule) Middleware {
	return func(next http.Handler) http.Handler {
		if limiter == nil || !rule.Enabled() {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if host, _, err := net.SplitHostPort(ip); err == nil {
				ip = host
			}

			res, err := limiter.Allow(r.Context(), name+":"+ip, rule)
			if err != nil {
				slog.WarnContext(r.Context(), "rate limiter unavailable, allowing request", "limit", name, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

			if !res.Allowed {
				retry := int(math.Ceil(res.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				slog.WarnContext(r.Context(), "rate limit exceeded", "limit", name, "client_ip", ip)
				writeJSON(w, errorResponse{
					Message: "Too many requests, please try again later",
					Error:   map[string]string{"retry_after_seconds": strconv.Itoa(retry)},
				}, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
