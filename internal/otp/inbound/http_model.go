package inbound

import "time"

type RequestOTPRequest struct {
	Identifier string `json:"identifier"`
	Channel    string `json:"channel"`
}

type RequestOTPResponse struct {
	Channel          string    `json:"channel"`
	ExpiresInMinutes int       `json:"expires_in_minutes"`
	ExpiresAt        time.Time `json:"expires_at"`
}

func (RequestOTPResponse) Message() string {
	return "OTP sent successfully"
}

type VerifyOTPRequest struct {
	Identifier string `json:"identifier"`
	Channel    string `json:"channel"`
	Code       string `json:"code"`
}

type VerifyOTPResponse struct {
	Verified        bool      `json:"verified"`
	Ticket          string    `json:"ticket"`
	TicketExpiresAt time.Time `json:"ticket_expires_at"`
}

func (VerifyOTPResponse) Message() string {
	return "OTP verified successfully"
}

type RedeemVerificationRequest struct {
	Ticket string `json:"ticket"`
}

type RedeemVerificationResponse struct {
	Identifier string `json:"identifier"`
	Channel    string `json:"channel"`
}

func (RedeemVerificationResponse) Message() string {
	return "Verification redeemed"
}
