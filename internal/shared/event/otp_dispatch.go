package event

const OTPDispatchRequestedDestination string = "otp.dispatch.requested"

// OTPDispatchMessage asks a downstream notifier to deliver a code. The code
// travels in clear text, so the destination must only be readable by the
// notifier.
type OTPDispatchMessage struct {
	RecordID   int64  `json:"record_id,string"`
	Channel    string `json:"channel"`
	Identifier string `json:"identifier"`
	Code       string `json:"code"`
	ExpiresAt  string `json:"expires_at"`
	Purpose    string `json:"purpose"`
	Subject    string `json:"subject"`
}
