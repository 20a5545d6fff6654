package inbound

import (
	"context"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/ratelimit"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

type uc interface {
	RequestOTP(ctx context.Context, in usecase.RequestOTPInput) (*usecase.RequestOTPOutput, error)
	VerifyOTP(ctx context.Context, in usecase.VerifyOTPInput) (*usecase.VerifyOTPOutput, error)
	RedeemVerification(ctx context.Context, in usecase.RedeemVerificationInput) (*usecase.RedeemVerificationOutput, error)
}

func rule(cfg config.Config, name string, fallbackMax int, fallbackWindowMinutes int64) ratelimit.Rule {
	r := ratelimit.Rule{
		Max:    cfg.GetInt("modules.otp.rate_limit." + name + ".max"),
		Window: cfg.GetMinute("modules.otp.rate_limit." + name + ".window_minutes"),
	}
	if r.Max == 0 && r.Window == 0 {
		r.Max = fallbackMax
		r.Window = time.Duration(fallbackWindowMinutes) * time.Minute
	}
	return r
}

// RegisterHTTPEndpoint mounts the OTP routes. A nil limiter disables the
// per-client rate limits.
func RegisterHTTPEndpoint(r *router.Router, uc uc, limiter ratelimit.Limiter, cfg config.Config) {
	end := &HTTPEndpoint{uc: uc}

	issue := router.RateLimit(limiter, "otp_request", rule(cfg, "request", 5, 15))
	verifyRule := rule(cfg, "verify", 10, 15)

	r.POST("/api/v1/otp/request", end.RequestOTP, issue)
	r.POST("/api/v1/otp/verify", end.VerifyOTP, router.RateLimit(limiter, "otp_verify", verifyRule))
	r.POST("/api/v1/otp/redeem", end.RedeemVerification, router.RateLimit(limiter, "otp_redeem", verifyRule))
}
