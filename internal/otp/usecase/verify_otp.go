package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
)

type VerifyOTPInput struct {
	Identifier string
	Channel    string
	Code       string
}

type verifyCode struct {
	Code string `validate:"required,otpcode"`
}

type VerifyOTPOutput struct {
	Ticket          string
	TicketExpiresAt time.Time
}

func (s *Usecase) VerifyOTP(ctx context.Context, in VerifyOTPInput) (*VerifyOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyOTP")
	defer span.End()

	dest, err := s.destination(in.Identifier, in.Channel)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(verifyCode{Code: in.Code}); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	codeHash, err := s.hmac.Hash(in.Code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()

	res, err := s.repoStore.Verify(ctx, dest, string(codeHash), now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo verify otp", "channel", dest.Channel.String(), "identifier", dest.Identifier, "error", err)
		return nil, goerror.NewServer(err)
	}

	if res.Status != entity.VerifyStatusVerified {
		attrs := []any{"channel", dest.Channel.String(), "identifier", dest.Identifier, "reason", res.Status.Reason().String()}
		if res.Record != nil {
			attrs = append(attrs, "record_id", res.Record.ID, "attempts", res.Record.Attempts)
		}
		slog.WarnContext(ctx, "otp verification rejected", attrs...)
		return nil, s.reject(ctx, res.Status.Reason())
	}

	rec := res.Record
	s.metrics.verify(ctx, dest.Channel)

	ticket, err := s.ticketer.Generate(jwt.Payload{
		RecordID:   rec.ID,
		Identifier: dest.Identifier,
		Channel:    dest.Channel.String(),
	}, rec.ExpiresAt)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate verification ticket", "record_id", rec.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &VerifyOTPOutput{Ticket: ticket, TicketExpiresAt: rec.ExpiresAt}, nil
}
