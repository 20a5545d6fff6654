package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/usecase"
)

// Log writes codes to the application log instead of delivering them. It is
// meant for local development only; the attribute key is chosen so that the
// masking handler does not redact it.
type Log struct{}

func NewLog() *Log {
	return &Log{}
}

func (*Log) Dispatch(ctx context.Context, req usecase.DispatchRequest) error {
	slog.WarnContext(ctx, "otp dispatched to log (development driver)",
		"record_id", req.RecordID,
		"channel", req.Destination.Channel.String(),
		"identifier", req.Destination.Identifier,
		"dev_otp", req.Code,
		"expires_at", req.ExpiresAt.UTC().Format(time.RFC3339),
	)
	return nil
}
