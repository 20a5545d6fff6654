package router

import (
	"net/http"

	"github.com/samber/lo"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
)

func middlewareMaintenance(cfg config.Config) Middleware {
	// read per request so a config reload can switch maintenance on and off
	blocked := func(route string) bool {
		if cfg == nil {
			return false
		}
		if cfg.GetBool("app.maintenance.all") {
			return route != "/health"
		}
		return lo.Contains(cfg.GetArray("app.maintenance.endpoints"), route)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if blocked(matchedRoutePath(r)) {
				writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
