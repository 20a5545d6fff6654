// Package validator provides struct validation for request inputs.
//
// Business code depends on the Validator interface. V10Validator wraps
// go-playground/validator v10 with English messages and adds the "phone" and
// "otpcode" rules. Error keys use the field's json tag so they line up with the
// request body the caller sent.
package validator
