package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type metrics struct {
	issued         metric.Int64Counter
	verified       metric.Int64Counter
	rejected       metric.Int64Counter
	dispatchFailed metric.Int64Counter
	pruned         metric.Int64Counter
}

func newMetrics(m metric.Meter) *metrics {
	counter := func(name, desc string) metric.Int64Counter {
		c, err := m.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			slog.Warn("failed to create otp counter, falling back to noop", "name", name, "error", err)
			c, _ = noop.NewMeterProvider().Meter("otp.usecase").Int64Counter(name)
		}
		return c
	}

	return &metrics{
		issued:         counter("otp.issued", "OTP codes issued and dispatched"),
		verified:       counter("otp.verified", "OTP codes verified successfully"),
		rejected:       counter("otp.rejected", "OTP operations rejected, by reason"),
		dispatchFailed: counter("otp.dispatch.failed", "OTP dispatches that failed and were rolled back"),
		pruned:         counter("otp.pruned", "expired OTP records physically removed"),
	}
}

func (m *metrics) reject(ctx context.Context, reason entity.Reason) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason.String())))
}

func (m *metrics) issue(ctx context.Context, ch entity.Channel) {
	m.issued.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", ch.String())))
}

func (m *metrics) verify(ctx context.Context, ch entity.Channel) {
	m.verified.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", ch.String())))
}
