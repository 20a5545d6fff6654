package inbound

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"go.uber.org/atomic"
)

type pruner interface {
	PruneExpired(ctx context.Context) (int64, error)
	PruneInterval() time.Duration
}

// PruneJob removes expired records on a fixed interval. A tick that fires
// while the previous run is still going is skipped.
type PruneJob struct {
	uc      pruner
	running atomic.Bool
}

func NewPruneJob(uc pruner) *PruneJob {
	return &PruneJob{uc: uc}
}

// RegisterPruneJob schedules the job on the goroutine manager until ctx ends.
func RegisterPruneJob(ctx context.Context, g *goroutine.Manager, uc pruner) *PruneJob {
	job := NewPruneJob(uc)
	tick := func(ctx context.Context) {
		g.Go(ctx, func(ctx context.Context) error {
			job.Run(ctx)
			return nil
		})
	}
	if !g.Every(ctx, uc.PruneInterval(), tick) {
		slog.WarnContext(ctx, "otp prune job was not scheduled")
	}
	return job
}

// Run performs one prune pass.
func (j *PruneJob) Run(ctx context.Context) {
	if !j.running.CompareAndSwap(false, true) {
		slog.DebugContext(ctx, "otp prune still running, skipping tick")
		return
	}
	defer j.running.Store(false)

	if _, err := j.uc.PruneExpired(ctx); err != nil {
		slog.WarnContext(ctx, "otp prune pass failed", "error", err)
	}
}
