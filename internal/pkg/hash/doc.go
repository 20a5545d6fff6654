// Package hash provides keyed digests for short secrets.
//
// OTP codes are stored as an HMAC-SHA256 digest so a database leak does not
// reveal live codes. The digest is deterministic, which keeps exact-match
// lookups possible: equal codes produce equal digests under the same key.
package hash
