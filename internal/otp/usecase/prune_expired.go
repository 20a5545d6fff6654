package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
)

// PruneInterval is the configured period of the prune job.
func (s *Usecase) PruneInterval() time.Duration {
	if d := s.cfg.GetSecond("modules.otp.prune.interval_seconds"); d > 0 {
		return d
	}
	return defaultPruneInterval
}

// pruneRetention is how long an expired record is kept so that verification
// still reports it as expired.
func (s *Usecase) pruneRetention() time.Duration {
	if d := s.cfg.GetMinute("modules.otp.prune.retention_minutes"); d > 0 {
		return d
	}
	return defaultRetention
}

// PruneExpired physically removes records that expired more than the
// configured retention ago. Replicas share one run per interval slot; a
// replica that loses the slot returns zero without error.
func (s *Usecase) PruneExpired(ctx context.Context) (int64, error) {
	ctx, span := s.startSpan(ctx, "PruneExpired")
	defer span.End()

	now := s.clock.Now()
	interval := s.PruneInterval()
	before := now.Add(-s.pruneRetention())
	slot := "otp:prune:" + strconv.FormatInt(now.Truncate(interval).Unix(), 10)

	var pruned int64
	err := s.idemp.Exec(ctx, slot, func(ctx context.Context) error {
		n, err := s.repoStore.PruneExpired(ctx, before)
		pruned = n
		return err
	}, idempotency.WithLockDuration(interval), idempotency.WithStateTTL(2*interval))
	if errors.Is(err, idempotency.ErrAlreadyInProgress) ||
		errors.Is(err, idempotency.ErrAlreadyCompleted) ||
		errors.Is(err, idempotency.ErrAlreadyFailed) {
		slog.DebugContext(ctx, "otp prune slot taken by another run", "slot", slot)
		return 0, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to prune expired otp records", "slot", slot, "before", before, "error", err)
		return 0, goerror.NewServer(err)
	}

	s.metrics.pruned.Add(ctx, pruned)
	if pruned > 0 {
		slog.InfoContext(ctx, "expired otp records pruned", "count", pruned, "before", before)
	}

	return pruned, nil
}
