// Package otp generates one-time passcodes.
//
// Two generators are provided. Numeric draws a uniform six digit code from
// crypto/rand in the range 100000..999999. HOTP derives the code from a fresh
// random secret with RFC 4226 truncation, which allows leading zeros. Both are
// safe for concurrent use and hold no state between calls.
package otp
