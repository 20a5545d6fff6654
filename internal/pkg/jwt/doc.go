// Package jwt issues and verifies verification tickets.
//
// A ticket is a short-lived HS512 JSON Web Token handed out after a code is
// verified. It names the OTP record that was consumed so a later step (for
// example account creation) can prove the identifier was verified without
// resubmitting the code.
package jwt
