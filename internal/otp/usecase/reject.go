package usecase

import (
	"context"
	"strconv"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type rejection struct {
	msg  string
	code goerror.Code
}

var rejections = map[entity.Reason]rejection{
	entity.ReasonAlreadyRegistered: {msg: "identifier is already registered", code: goerror.CodeConflict},
	entity.ReasonThrottledWait:     {msg: "an OTP was already sent, please wait before requesting a new one", code: goerror.CodeTooManyRequest},
	entity.ReasonInvalidCode:       {msg: "invalid OTP code", code: goerror.CodeInvalidCredential},
	entity.ReasonExpired:           {msg: "OTP has expired, please request a new one", code: goerror.CodeGone},
	entity.ReasonAlreadyUsed:       {msg: "OTP has already been used", code: goerror.CodeConflict},
	entity.ReasonExhausted:         {msg: "too many failed attempts, please request a new OTP", code: goerror.CodeTooManyRequest},
	entity.ReasonDispatchFailed:    {msg: "failed to send OTP, please try again", code: goerror.CodeUnavailable},
	entity.ReasonChannelDisabled:   {msg: "channel is currently disabled", code: goerror.CodeForbidden},
}

// reject builds the business error for reason and counts it.
func (s *Usecase) reject(ctx context.Context, reason entity.Reason, kv ...string) error {
	s.metrics.reject(ctx, reason)

	r, ok := rejections[reason]
	if !ok {
		r = rejection{msg: "request rejected", code: goerror.CodeInternal}
	}

	return goerror.NewBusiness(r.msg, r.code, append([]string{goerror.FieldReason, reason.String()}, kv...)...)
}

func (s *Usecase) throttled(ctx context.Context, minutes int) error {
	return s.reject(ctx, entity.ReasonThrottledWait, goerror.FieldRetryAfterMinutes, strconv.Itoa(minutes))
}

// ReasonOf extracts the rejection reason carried by err, if any.
func ReasonOf(err error) (entity.Reason, bool) {
	gerr, ok := goerror.As(err)
	if !ok {
		return "", false
	}
	reason := gerr.Field(goerror.FieldReason)
	return entity.Reason(reason), reason != ""
}
