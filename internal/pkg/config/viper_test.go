package config

import (
	"testing"
	"time"
)

const sampleYAML = `
modules:
  otp:
    ttl_minutes: 10
    channels:
      disabled: [phone, " "]
    csv: "a, b,,c"
cors:
  headers: "X-A:1,X-B:2"
`

func TestViperFromBytes(t *testing.T) {
	// Arrange
	cfg, err := NewViperFromBytes("yaml", []byte(sampleYAML), WithDefaults(map[string]any{
		"modules.otp.max_attempts": 3,
	}))
	if err != nil {
		t.Fatalf("NewViperFromBytes: %v", err)
	}

	// Act & Assert
	if got := cfg.GetMinute("modules.otp.ttl_minutes"); got != 10*time.Minute {
		t.Fatalf("ttl = %v", got)
	}
	if got := cfg.GetInt("modules.otp.max_attempts"); got != 3 {
		t.Fatalf("default max_attempts = %d", got)
	}
	if got := cfg.GetArray("modules.otp.channels.disabled"); len(got) != 1 || got[0] != "phone" {
		t.Fatalf("disabled = %v", got)
	}
	if got := cfg.GetArray("modules.otp.csv"); len(got) != 3 || got[2] != "c" {
		t.Fatalf("csv = %v", got)
	}
	if got := cfg.GetMap("cors.headers"); got["X-B"] != "2" {
		t.Fatalf("map = %v", got)
	}
}

func TestViper_EnvOverride(t *testing.T) {
	t.Setenv("OTPGATE_MODULES_OTP_TTL_MINUTES", "5")

	cfg, err := NewViperFromBytes("yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("NewViperFromBytes: %v", err)
	}

	if got := cfg.GetMinute("modules.otp.ttl_minutes"); got != 5*time.Minute {
		t.Fatalf("ttl = %v, want env override", got)
	}
}

func TestViper_GetArrayFromEnv(t *testing.T) {
	// Arrange
	t.Setenv("OTPGATE_MODULES_OTP_CHANNELS_DISABLED", "email, phone")
	t.Setenv("OTPGATE_APP_SERVER_CORS", "https://a.io https://b.io")

	cfg, err := NewViperFromBytes("yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("NewViperFromBytes: %v", err)
	}

	// Act
	disabled := cfg.GetArray("modules.otp.channels.disabled")
	cors := cfg.GetArray("app.server.cors")

	// Assert
	if len(disabled) != 2 || disabled[0] != "email" || disabled[1] != "phone" {
		t.Fatalf("disabled = %q", disabled)
	}
	if len(cors) != 1 || cors[0] != "https://a.io https://b.io" {
		t.Fatalf("cors = %q", cors)
	}
}

func TestNewViperFromBytes_RequiresType(t *testing.T) {
	if _, err := NewViperFromBytes(" ", nil); err == nil {
		t.Fatalf("expected error")
	}
}
