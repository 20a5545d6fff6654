package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
)

type RedeemVerificationInput struct {
	Ticket string `validate:"required"`
}

type RedeemVerificationOutput struct {
	Identifier string
	Channel    entity.Channel
}

// RedeemVerification exchanges a verification ticket for the destination it
// proves, deleting the consumed record so the ticket works only once.
func (s *Usecase) RedeemVerification(ctx context.Context, in RedeemVerificationInput) (*RedeemVerificationOutput, error) {
	ctx, span := s.startSpan(ctx, "RedeemVerification")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	claims, err := s.ticketer.Verify(in.Ticket)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, s.reject(ctx, entity.ReasonExpired)
	}
	if err != nil {
		slog.WarnContext(ctx, "invalid verification ticket", "error", err)
		return nil, goerror.NewBusiness("invalid verification ticket", goerror.CodeUnauthorized)
	}

	dest := entity.Destination{
		Channel:    entity.ChannelFromString(claims.Channel),
		Identifier: claims.Identifier,
	}
	if dest.Channel.IsUnknown() {
		slog.WarnContext(ctx, "verification ticket carries unknown channel", "channel", claims.Channel)
		return nil, goerror.NewBusiness("invalid verification ticket", goerror.CodeUnauthorized)
	}

	rec, err := s.repoStore.Redeem(ctx, claims.RecordID, dest)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "verification ticket already redeemed", "record_id", claims.RecordID)
		return nil, goerror.NewBusiness("verification ticket already redeemed", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo redeem otp record", "record_id", claims.RecordID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if rec.IsExpired(s.clock.Now()) {
		return nil, s.reject(ctx, entity.ReasonExpired)
	}

	return &RedeemVerificationOutput{Identifier: dest.Identifier, Channel: dest.Channel}, nil
}
