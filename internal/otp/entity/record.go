package entity

import (
	"math"
	"time"
)

// Destination is where a code is delivered. The channel decides how the
// identifier is interpreted, so a record never carries both a phone number
// and an email address.
type Destination struct {
	Channel    Channel
	Identifier string
}

func Phone(number string) Destination {
	return Destination{Channel: ChannelPhone, Identifier: number}
}

func Email(address string) Destination {
	return Destination{Channel: ChannelEmail, Identifier: address}
}

// Key identifies the logical record slot for this destination.
func (d Destination) Key() string {
	return d.Channel.String() + ":" + d.Identifier
}

type Record struct {
	ID          int64
	Destination Destination
	CodeHash    string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Consumed    bool
	Attempts    int
	MaxAttempts int
}

// IsExpired reports whether the record is dead at now. Expiry is exclusive:
// at exactly ExpiresAt the record is already expired.
func (r *Record) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

func (r *Record) IsExhausted() bool {
	return r.Attempts >= r.MaxAttempts
}

// IsLive reports whether the record still blocks re-issuance.
func (r *Record) IsLive(now time.Time) bool {
	return !r.Consumed && !r.IsExpired(now)
}

func (r *Record) State(now time.Time) RecordState {
	switch {
	case r.Consumed:
		return RecordStateConsumed
	case r.IsExpired(now):
		return RecordStateExpired
	case r.IsExhausted():
		return RecordStateExhausted
	default:
		return RecordStateLive
	}
}

// RemainingMinutes is the time left until expiry rounded up to whole minutes.
func (r *Record) RemainingMinutes(now time.Time) int {
	left := r.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Minutes()))
}

// VerifyStatus is the outcome of a single verification attempt.
type VerifyStatus int8

const (
	VerifyStatusVerified VerifyStatus = iota
	VerifyStatusInvalidCode
	VerifyStatusExpired
	VerifyStatusAlreadyUsed
	VerifyStatusExhausted
)

// Reason maps a failed status to its rejection reason.
func (s VerifyStatus) Reason() Reason {
	switch s {
	case VerifyStatusExpired:
		return ReasonExpired
	case VerifyStatusAlreadyUsed:
		return ReasonAlreadyUsed
	case VerifyStatusExhausted:
		return ReasonExhausted
	default:
		return ReasonInvalidCode
	}
}

type VerifyResult struct {
	Status VerifyStatus
	// Record is the matched record on success and the newest record for the
	// destination otherwise. It is nil when the destination has no record.
	Record *Record
}

// Classify decides the failure outcome from the newest record for a
// destination after the code did not match a verifiable record. The bool
// reports whether the attempt must be counted against the record.
func Classify(latest *Record, now time.Time) (VerifyStatus, bool) {
	switch {
	case latest == nil:
		return VerifyStatusInvalidCode, false
	case latest.IsExpired(now):
		return VerifyStatusExpired, false
	case latest.Consumed:
		return VerifyStatusAlreadyUsed, false
	default:
		return VerifyStatusInvalidCode, true
	}
}

// AfterIncrement decides the outcome once a failed attempt has been counted.
func AfterIncrement(attempts, maxAttempts int) VerifyStatus {
	if attempts >= maxAttempts {
		return VerifyStatusExhausted
	}
	return VerifyStatusInvalidCode
}
