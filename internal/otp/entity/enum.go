package entity

import (
	"errors"
	"strings"
)

var (
	ErrChannelUnknown  = errors.New("otp: channel is unknown")
	ErrAlreadyConsumed = errors.New("otp: record already consumed")
)

type Channel int16

const (
	// ChannelUnknown is mean channel is not known / not set.
	ChannelUnknown Channel = 0

	// ChannelPhone mean the code is delivered to a phone number.
	ChannelPhone Channel = 1

	// ChannelEmail mean the code is delivered to an email address.
	ChannelEmail Channel = 2
)

func (c Channel) String() string {
	switch c {
	case ChannelPhone:
		return "phone"
	case ChannelEmail:
		return "email"
	default:
		return "unknown"
	}
}

func (c Channel) IsUnknown() bool {
	return c != ChannelPhone && c != ChannelEmail
}

func ChannelFromString(s string) Channel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "phone":
		return ChannelPhone
	case "email":
		return ChannelEmail
	default:
		return ChannelUnknown
	}
}

// Reason is the machine readable outcome of a rejected OTP operation.
type Reason string

const (
	ReasonAlreadyRegistered Reason = "ALREADY_REGISTERED"
	ReasonThrottledWait     Reason = "THROTTLED_WAIT"
	ReasonInvalidCode       Reason = "INVALID_CODE"
	ReasonExpired           Reason = "EXPIRED"
	ReasonAlreadyUsed       Reason = "ALREADY_USED"
	ReasonExhausted         Reason = "EXHAUSTED"
	ReasonDispatchFailed    Reason = "DISPATCH_FAILED"
	ReasonChannelDisabled   Reason = "CHANNEL_DISABLED"
)

func (r Reason) String() string {
	return string(r)
}

// RecordState is the lifecycle position of a record at a given instant.
type RecordState int8

const (
	RecordStateLive RecordState = iota
	RecordStateConsumed
	RecordStateExpired
	RecordStateExhausted
)

func (s RecordState) String() string {
	switch s {
	case RecordStateLive:
		return "Live"
	case RecordStateConsumed:
		return "Consumed"
	case RecordStateExpired:
		return "Expired"
	case RecordStateExhausted:
		return "Exhausted"
	default:
		return "Unknown"
	}
}
