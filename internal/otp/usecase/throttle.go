package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

// canIssue returns how many minutes dest must wait before a new code can be
// issued, or zero when no live record exists.
func (s *Usecase) canIssue(ctx context.Context, dest entity.Destination, now time.Time) (int, error) {
	live, err := s.repoStore.FindLive(ctx, dest, now)
	if errors.Is(err, goerror.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo find live otp", "channel", dest.Channel.String(), "identifier", dest.Identifier, "error", err)
		return 0, goerror.NewServer(err)
	}

	return max(live.RemainingMinutes(now), 1), nil
}
