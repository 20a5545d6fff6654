package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	opt, err := redis.ParseURL(uri)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}

	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestStateTracker_Exec(t *testing.T) {
	client := newRedis(t)
	ctx := context.Background()

	t.Run("runs once per key", func(t *testing.T) {
		// Arrange
		tracker := New(client, "test:")
		runs := 0
		fn := func(context.Context) error { runs++; return nil }

		// Act
		first := tracker.Exec(ctx, "slot-1", fn, WithStateTTL(time.Minute))
		second := tracker.Exec(ctx, "slot-1", fn, WithStateTTL(time.Minute))

		// Assert
		if first != nil {
			t.Fatalf("first Exec: %v", first)
		}
		if !errors.Is(second, ErrAlreadyCompleted) {
			t.Fatalf("second Exec = %v, want ErrAlreadyCompleted", second)
		}
		if runs != 1 {
			t.Fatalf("runs = %d, want 1", runs)
		}
	})

	t.Run("failed run can be retried when allowed", func(t *testing.T) {
		tracker := New(client, "test:")
		boom := errors.New("boom")

		if err := tracker.Exec(ctx, "slot-2", func(context.Context) error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("Exec = %v, want boom", err)
		}
		if err := tracker.Exec(ctx, "slot-2", func(context.Context) error { return nil }); !errors.Is(err, ErrAlreadyFailed) {
			t.Fatalf("Exec = %v, want ErrAlreadyFailed", err)
		}
		if err := tracker.Exec(ctx, "slot-2", func(context.Context) error { return nil }, WithRetryFailed()); err != nil {
			t.Fatalf("retry Exec: %v", err)
		}
	})

	t.Run("in progress blocks other holders", func(t *testing.T) {
		tracker := New(client, "test:")

		state, err := tracker.Acquire(ctx, "slot-3", time.Minute)
		if err != nil || state != StateNone {
			t.Fatalf("Acquire = %v, %v", state, err)
		}

		err = tracker.Exec(ctx, "slot-3", func(context.Context) error { return nil })
		if !errors.Is(err, ErrAlreadyInProgress) {
			t.Fatalf("Exec = %v, want ErrAlreadyInProgress", err)
		}
	})
}
