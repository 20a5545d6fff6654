// Package clock provides a tiny time abstraction.
//
// Production code should depend on the Clocker interface instead of calling
// time.Now() directly. OTP expiry is evaluated against this clock, which lets
// tests jump past a record's expiry with ManualClocker.Advance instead of
// sleeping.
package clock
