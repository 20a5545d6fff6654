package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidSigningMethod is returned when the JWT signing method is not supported.
	ErrInvalidSigningMethod = errors.New("invalid JWT signing method")

	// ErrSigningKeyTooShort is returned when the HS512 signing key is less than 64 bytes.
	ErrSigningKeyTooShort = errors.New("HS512 signing key must be at least 64 bytes (512 bits)")

	// ErrTokenExpired is returned when the JWT token has expired.
	ErrTokenExpired = errors.New("JWT token has expired")

	// ErrInvalidToken is returned when the token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
)

// Ticketer issues and verifies verification tickets.
type Ticketer interface {
	Generate(p Payload, expiresAt time.Time) (string, error)
	Verify(tokenStr string) (Claims, error)
}

type clocker interface {
	Now() time.Time
}

type generator interface {
	Generate() string
}

// Config defines the inputs for building a Ticketer.
type Config struct {
	// Secret is the HMAC signing key.
	Secret []byte
	// Issuer is the token issuer value.
	Issuer string
	// Audiences are the accepted token audiences.
	Audiences []string
	// MaxTTL caps the ticket lifetime regardless of the requested expiry.
	MaxTTL time.Duration
	// Clock provides the current time source.
	Clock clocker
	// UUID generates token IDs.
	UUID generator
}

// Payload is the verified subject carried in a ticket.
type Payload struct {
	RecordID   int64
	Identifier string
	Channel    string
}

// Claims is a ticket's registered claims plus its payload.
type Claims struct {
	jwt.RegisteredClaims
	RecordID   int64  `json:"rid,string"`
	Identifier string `json:"idf"`
	Channel    string `json:"chn"`
}

// Payload returns the subject carried in the claims.
func (c Claims) Payload() Payload {
	return Payload{RecordID: c.RecordID, Identifier: c.Identifier, Channel: c.Channel}
}
