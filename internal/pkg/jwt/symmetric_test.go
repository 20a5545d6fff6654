package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
)

func newTestTicketer(t *testing.T, clk *clock.ManualClocker, maxTTL time.Duration) *Symmetric {
	t.Helper()

	s, err := NewHS512(Config{
		Secret:    []byte(strings.Repeat("k", 64)),
		Issuer:    "otpgate",
		Audiences: []string{"registration"},
		MaxTTL:    maxTTL,
		Clock:     clk,
		UUID:      uid.NewUUID(),
	})
	if err != nil {
		t.Fatalf("NewHS512: %v", err)
	}
	return s
}

func TestSymmetric_RoundTrip(t *testing.T) {
	// Arrange
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clk := clock.NewManual(now)
	s := newTestTicketer(t, clk, 0)
	p := Payload{RecordID: 42, Identifier: "a@b.co", Channel: "email"}

	// Act
	tok, err := s.Generate(p, now.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	claims, err := s.Verify(tok)

	// Assert
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Payload() != p {
		t.Fatalf("payload = %+v, want %+v", claims.Payload(), p)
	}
	if !claims.ExpiresAt.Time.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("expires = %v", claims.ExpiresAt.Time)
	}
}

func TestSymmetric_Expired(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clk := clock.NewManual(now)
	s := newTestTicketer(t, clk, 0)

	tok, _ := s.Generate(Payload{RecordID: 1}, now.Add(time.Minute))
	clk.Advance(2 * time.Minute)

	if _, err := s.Verify(tok); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestSymmetric_MaxTTLCapsExpiry(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := newTestTicketer(t, clock.NewManual(now), time.Minute)

	tok, _ := s.Generate(Payload{RecordID: 1}, now.Add(time.Hour))
	claims, err := s.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !claims.ExpiresAt.Time.Equal(now.Add(time.Minute)) {
		t.Fatalf("expires = %v, want capped", claims.ExpiresAt.Time)
	}
}

func TestSymmetric_Tampered(t *testing.T) {
	now := time.Now()
	s := newTestTicketer(t, clock.NewManual(now), 0)

	tok, _ := s.Generate(Payload{RecordID: 1}, now.Add(time.Minute))

	if _, err := s.Verify(tok + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestNewHS512_ShortKey(t *testing.T) {
	if _, err := NewHS512(Config{Secret: []byte("short")}); !errors.Is(err, ErrSigningKeyTooShort) {
		t.Fatalf("err = %v, want ErrSigningKeyTooShort", err)
	}
}
