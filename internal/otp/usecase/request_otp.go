package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

const dispatchPurpose = "registration"

type RequestOTPInput struct {
	Identifier string
	Channel    string
}

type RequestOTPOutput struct {
	Channel          entity.Channel
	ExpiresAt        time.Time
	ExpiresInMinutes int
}

func (s *Usecase) RequestOTP(ctx context.Context, in RequestOTPInput) (*RequestOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "RequestOTP")
	defer span.End()

	dest, err := s.destination(in.Identifier, in.Channel)
	if err != nil {
		return nil, err
	}

	if s.channelDisabled(dest.Channel) {
		slog.WarnContext(ctx, "otp requested on disabled channel", "channel", dest.Channel.String())
		return nil, s.reject(ctx, entity.ReasonChannelDisabled)
	}

	if s.cfg.GetBool("modules.otp.registry.enabled") {
		registered, err := s.repoRegistry.IsRegistered(ctx, dest)
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo check registered account", "channel", dest.Channel.String(), "identifier", dest.Identifier, "error", err)
			return nil, goerror.NewServer(err)
		}
		if registered {
			return nil, s.reject(ctx, entity.ReasonAlreadyRegistered)
		}
	}

	now := s.clock.Now()

	wait, err := s.canIssue(ctx, dest, now)
	if err != nil {
		return nil, err
	}
	if wait > 0 {
		return nil, s.throttled(ctx, wait)
	}

	code, err := s.generator.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	codeHash, err := s.hmac.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	rec := entity.Record{
		ID:          s.uid.Generate(),
		Destination: dest,
		CodeHash:    string(codeHash),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl()),
		MaxAttempts: s.maxAttempts(),
	}

	if err := s.repoStore.Create(ctx, rec); err != nil {
		if errors.Is(err, goerror.ErrConflict) {
			// another request for the same destination won the race
			slog.WarnContext(ctx, "duplicate live otp rejected by store", "channel", dest.Channel.String(), "identifier", dest.Identifier)
			return nil, s.throttled(ctx, s.raceWait(ctx, dest, now))
		}
		slog.ErrorContext(ctx, "failed to repo create otp record", "record_id", rec.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.dispatcher.Dispatch(ctx, DispatchRequest{
		RecordID:    rec.ID,
		Destination: dest,
		Code:        code,
		ExpiresAt:   rec.ExpiresAt,
		Purpose:     dispatchPurpose,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to dispatch otp", "record_id", rec.ID, "channel", dest.Channel.String(), "error", err)
		s.metrics.dispatchFailed.Add(ctx, 1)

		if delErr := s.repoStore.Delete(context.WithoutCancel(ctx), rec.ID); delErr != nil {
			slog.ErrorContext(ctx, "failed to repo delete otp record after dispatch failure", "record_id", rec.ID, "error", delErr)
		}

		return nil, s.reject(ctx, entity.ReasonDispatchFailed)
	}

	s.metrics.issue(ctx, dest.Channel)
	slog.InfoContext(ctx, "otp issued", "record_id", rec.ID, "channel", dest.Channel.String())

	return &RequestOTPOutput{
		Channel:          dest.Channel,
		ExpiresAt:        rec.ExpiresAt,
		ExpiresInMinutes: rec.RemainingMinutes(now),
	}, nil
}

// raceWait reports the winner's remaining window, falling back to a full TTL
// when the winner is not visible yet.
func (s *Usecase) raceWait(ctx context.Context, dest entity.Destination, now time.Time) int {
	wait, err := s.canIssue(ctx, dest, now)
	if err != nil || wait == 0 {
		full := entity.Record{ExpiresAt: now.Add(s.ttl())}
		return full.RemainingMinutes(now)
	}
	return wait
}
