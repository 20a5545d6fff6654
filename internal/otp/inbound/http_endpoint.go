package inbound

import (
	"github.com/shandysiswandi/otpgate/internal/otp/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for OTP issuance and verification.
type HTTPEndpoint struct {
	uc uc
}

// RequestOTP issues a code to an identifier over the requested channel.
func (h *HTTPEndpoint) RequestOTP(r *router.Request) (any, error) {
	var req RequestOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RequestOTP(r.Context(), usecase.RequestOTPInput{
		Identifier: req.Identifier,
		Channel:    req.Channel,
	})
	if err != nil {
		return nil, err
	}

	return RequestOTPResponse{
		Channel:          resp.Channel.String(),
		ExpiresInMinutes: resp.ExpiresInMinutes,
		ExpiresAt:        resp.ExpiresAt,
	}, nil
}

// VerifyOTP checks a submitted code and returns a verification ticket.
func (h *HTTPEndpoint) VerifyOTP(r *router.Request) (any, error) {
	var req VerifyOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyOTP(r.Context(), usecase.VerifyOTPInput{
		Identifier: req.Identifier,
		Channel:    req.Channel,
		Code:       req.Code,
	})
	if err != nil {
		return nil, err
	}

	return VerifyOTPResponse{
		Verified:        true,
		Ticket:          resp.Ticket,
		TicketExpiresAt: resp.TicketExpiresAt,
	}, nil
}

// RedeemVerification exchanges a ticket for the verified identifier.
func (h *HTTPEndpoint) RedeemVerification(r *router.Request) (any, error) {
	var req RedeemVerificationRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RedeemVerification(r.Context(), usecase.RedeemVerificationInput{Ticket: req.Ticket})
	if err != nil {
		return nil, err
	}

	return RedeemVerificationResponse{
		Identifier: resp.Identifier,
		Channel:    resp.Channel.String(),
	}, nil
}
