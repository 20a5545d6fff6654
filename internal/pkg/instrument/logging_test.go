package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, mask ...string) *slog.Logger {
	return slog.New(newHandler(buf, &Config{ServiceName: "otpgate", MaskFields: mask}, nil))
}

func TestLogging_MasksCodes(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	log := newTestLogger(&buf, "code", "Ticket")

	// Act
	log.Info("verify", "code", "123456", "request", `{"channel":"email","code":"123456"}`,
		slog.Group("resp", slog.String("ticket", "abc")))

	// Assert
	out := buf.String()
	if strings.Contains(out, "123456") || strings.Contains(out, "abc") {
		t.Fatalf("secret leaked: %s", out)
	}
	if !strings.Contains(out, "email") {
		t.Fatalf("unmasked field missing: %s", out)
	}
}

func TestLogging_MasksIdentifierWithoutConfig(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	log := newTestLogger(&buf)

	// Act
	log.Warn("duplicate live otp rejected by store", "channel", "phone", "identifier", "+628123456789",
		"request", `{"identifier":"a@b.co","code":"654321"}`)

	// Assert
	out := buf.String()
	if strings.Contains(out, "+628123456789") || strings.Contains(out, "a@b.co") || strings.Contains(out, "654321") {
		t.Fatalf("personal data leaked: %s", out)
	}
	if !strings.Contains(out, "phone") {
		t.Fatalf("unmasked field missing: %s", out)
	}
}

func TestLogging_CorrelationID(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf)

	ctx := SetCorrelationID(context.Background(), "cid-1")
	log.InfoContext(ctx, "hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("invalid json log: %v", err)
	}
	if line["_cID"] != "cid-1" || line["service"] != "otpgate" || line["severity"] != "INFO" {
		t.Fatalf("unexpected log line: %v", line)
	}
}

func TestGetCorrelationID_Empty(t *testing.T) {
	if got := GetCorrelationID(context.Background()); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("debug") != slog.LevelDebug || parseLevel("nonsense") != slog.LevelInfo {
		t.Fatalf("unexpected level parsing")
	}
}
