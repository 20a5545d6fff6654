package dispatch

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpgate/internal/otp/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const keyOfCorrelationID string = "cID"

// RetryConfig bounds publish retries for a single dispatch.
type RetryConfig struct {
	Attempts uint64
	Base     time.Duration
	Cap      time.Duration
}

// Broker hands codes to a downstream notifier through the message broker.
type Broker struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
	retry  RetryConfig
	title  cases.Caser
}

func NewBroker(client messaging.Publisher, ins instrument.Instrumentation, rc RetryConfig) *Broker {
	if rc.Base <= 0 {
		rc.Base = 100 * time.Millisecond
	}
	if rc.Cap <= 0 {
		rc.Cap = time.Second
	}

	return &Broker{
		client: client,
		ins:    ins,
		retry:  rc,
		title:  cases.Title(language.English),
	}
}

func (b *Broker) backoff() retry.Backoff {
	bo := retry.NewFibonacci(b.retry.Base)
	bo = retry.WithCappedDuration(b.retry.Cap, bo)
	return retry.WithMaxRetries(b.retry.Attempts, bo)
}

// Dispatch publishes the code. Publish errors are retried with a capped
// Fibonacci backoff; the last error is returned once retries run out.
func (b *Broker) Dispatch(ctx context.Context, req usecase.DispatchRequest) error {
	ctx, span := b.ins.Tracer("otp.outbound.dispatch").Start(ctx, "Dispatch")
	defer span.End()

	body, err := json.Marshal(event.OTPDispatchMessage{
		RecordID:   req.RecordID,
		Channel:    req.Destination.Channel.String(),
		Identifier: req.Destination.Identifier,
		Code:       req.Code,
		ExpiresAt:  req.ExpiresAt.UTC().Format(time.RFC3339),
		Purpose:    req.Purpose,
		Subject:    b.title.String(req.Purpose + " verification code"),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	msg := messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(strconv.FormatInt(req.RecordID, 10)),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(instrument.GetCorrelationID(ctx))}},
	}

	err = retry.Do(ctx, b.backoff(), func(ctx context.Context) error {
		if _, err := b.client.Publish(ctx, event.OTPDispatchRequestedDestination, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
