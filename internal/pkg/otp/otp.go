package otp

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"io"
	"math/big"
	mrand "math/rand/v2"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

// Length is the number of digits in a generated code.
const Length = 6

// ErrUnknownGenerator is returned by New for an unrecognised name.
var ErrUnknownGenerator = errors.New("otp: unknown generator")

// Generator produces a fresh code on every call.
type Generator interface {
	Generate() (string, error)
}

// New returns the generator registered under name ("numeric" or "hotp").
func New(name string) (Generator, error) {
	switch name {
	case "", "numeric":
		return NewNumeric(), nil
	case "hotp":
		return NewHOTP(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGenerator, name)
	}
}

const (
	numericMin = 100000
	numericMax = 999999
)

// Numeric generates codes uniformly distributed over 100000..999999.
type Numeric struct {
	rand io.Reader
}

// NewNumeric returns a Numeric generator backed by crypto/rand.
func NewNumeric() *Numeric {
	return &Numeric{rand: rand.Reader}
}

// Generate returns a six digit code.
func (n *Numeric) Generate() (string, error) {
	v, err := rand.Int(n.rand, big.NewInt(numericMax-numericMin+1))
	if err != nil {
		return "", fmt.Errorf("otp: read entropy: %w", err)
	}
	return fmt.Sprintf("%06d", v.Int64()+numericMin), nil
}

// HOTP generates codes with the HOTP algorithm over a random one-shot secret.
type HOTP struct {
	rand       io.Reader
	secretSize int
}

// NewHOTP returns an HOTP generator using 20 byte secrets (RFC 4226 recommendation).
func NewHOTP() *HOTP {
	return &HOTP{rand: rand.Reader, secretSize: 20}
}

// Generate returns a six digit code, possibly with leading zeros.
func (h *HOTP) Generate() (string, error) {
	raw := make([]byte, h.secretSize)
	if _, err := io.ReadFull(h.rand, raw); err != nil {
		return "", fmt.Errorf("otp: read entropy: %w", err)
	}

	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw)

	return hotp.GenerateCodeCustom(secret, mrand.Uint64(), hotp.ValidateOpts{
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}
