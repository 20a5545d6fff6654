package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
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

func TestRedis_Allow(t *testing.T) {
	client := newRedis(t)
	ctx := context.Background()

	t.Run("blocks after max within window", func(t *testing.T) {
		// Arrange
		now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		l := NewRedis(client, "t1:")
		l.now = func() time.Time { return now }
		rule := Rule{Max: 2, Window: time.Minute}

		// Act
		r1, _ := l.Allow(ctx, "ip", rule)
		r2, _ := l.Allow(ctx, "ip", rule)
		r3, err := l.Allow(ctx, "ip", rule)

		// Assert
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !r1.Allowed || r1.Remaining != 1 || !r2.Allowed || r2.Remaining != 0 {
			t.Fatalf("unexpected admits: %+v %+v", r1, r2)
		}
		if r3.Allowed || r3.RetryAfter != time.Minute {
			t.Fatalf("third = %+v, want blocked for a minute", r3)
		}
	})

	t.Run("window slides", func(t *testing.T) {
		now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		l := NewRedis(client, "t2:")
		l.now = func() time.Time { return now }
		rule := Rule{Max: 1, Window: time.Minute}

		_, _ = l.Allow(ctx, "ip", rule)
		now = now.Add(30 * time.Second)
		blocked, _ := l.Allow(ctx, "ip", rule)
		now = now.Add(31 * time.Second)
		again, _ := l.Allow(ctx, "ip", rule)

		if blocked.Allowed || blocked.RetryAfter != 30*time.Second {
			t.Fatalf("blocked = %+v", blocked)
		}
		if !again.Allowed {
			t.Fatalf("request after window rejected: %+v", again)
		}
	})

	t.Run("concurrent callers never exceed max", func(t *testing.T) {
		l := NewRedis(client, "t3:")
		rule := Rule{Max: 5, Window: time.Minute}

		var allowed atomic.Int32
		var wg sync.WaitGroup
		for range 40 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if res, err := l.Allow(ctx, "ip", rule); err == nil && res.Allowed {
					allowed.Add(1)
				}
			}()
		}
		wg.Wait()

		if allowed.Load() != 5 {
			t.Fatalf("allowed = %d, want 5", allowed.Load())
		}
	})
}

func TestRule_Disabled(t *testing.T) {
	l := NewRedis(nil, "")
	res, err := l.Allow(context.Background(), "any", Rule{})
	if err != nil || !res.Allowed {
		t.Fatalf("disabled rule = %+v, %v", res, err)
	}
}
