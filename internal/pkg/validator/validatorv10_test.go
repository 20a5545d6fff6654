package validator

import (
	"errors"
	"testing"
)

type sample struct {
	Phone string `json:"phone" validate:"required,phone"`
	Code  string `json:"code" validate:"required,otpcode"`
	Email string `json:"email_address" validate:"omitempty,email"`
}

func TestV10Validator(t *testing.T) {
	v, err := NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator: %v", err)
	}

	tests := []struct {
		name       string
		in         sample
		wantFields []string
	}{
		{name: "valid", in: sample{Phone: "+6281234567890", Code: "012345"}},
		{name: "short phone", in: sample{Phone: "12345", Code: "123456"}, wantFields: []string{"phone"}},
		{name: "letters in code", in: sample{Phone: "9999999999", Code: "12a456"}, wantFields: []string{"code"}},
		{name: "seven digit code", in: sample{Phone: "9999999999", Code: "1234567"}, wantFields: []string{"code"}},
		{name: "bad email uses json name", in: sample{Phone: "9999999999", Code: "123456", Email: "nope"}, wantFields: []string{"email_address"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.in)

			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verr V10ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want V10ValidationError", err)
			}
			for _, f := range tt.wantFields {
				if verr[f] == "" {
					t.Fatalf("missing field %q in %v", f, verr)
				}
			}
		})
	}
}

func TestV10Validator_Var(t *testing.T) {
	v, _ := NewV10Validator()

	if err := v.Var("user@example.com", "email"); err != nil {
		t.Fatalf("valid email rejected: %v", err)
	}
	if err := v.Var("9999999999", "phone"); err != nil {
		t.Fatalf("valid phone rejected: %v", err)
	}
	if err := v.Var("abc", "phone"); err == nil {
		t.Fatalf("invalid phone accepted")
	}
}
