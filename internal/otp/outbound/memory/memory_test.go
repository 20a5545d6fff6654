package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func newRecord(id int64, dest entity.Destination, hash string, at time.Time) entity.Record {
	return entity.Record{
		ID:          id,
		Destination: dest,
		CodeHash:    hash,
		CreatedAt:   at,
		ExpiresAt:   at.Add(10 * time.Minute),
		MaxAttempts: 3,
	}
}

func TestStore_CreateRejectsSecondLiveRecord(t *testing.T) {
	// Arrange
	ctx := context.Background()
	s := NewStore()
	dest := entity.Phone("9999999999")

	// Act
	errFirst := s.Create(ctx, newRecord(1, dest, "h1", t0))
	errSecond := s.Create(ctx, newRecord(2, dest, "h2", t0.Add(time.Minute)))
	errOther := s.Create(ctx, newRecord(3, entity.Email("a@b.io"), "h3", t0))

	// Assert
	if errFirst != nil || errOther != nil {
		t.Fatalf("unexpected errors: %v %v", errFirst, errOther)
	}
	if !errors.Is(errSecond, goerror.ErrConflict) {
		t.Fatalf("second create err = %v, want ErrConflict", errSecond)
	}
}

func TestStore_CreateAfterExpiryReplacesRecord(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	dest := entity.Phone("9999999999")

	if err := s.Create(ctx, newRecord(1, dest, "h1", t0)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, newRecord(2, dest, "h2", t0.Add(10*time.Minute))); err != nil {
		t.Fatalf("Create after expiry: %v", err)
	}

	live, err := s.FindLive(ctx, dest, t0.Add(11*time.Minute))
	if err != nil || live.ID != 2 {
		t.Fatalf("FindLive = %+v, %v", live, err)
	}
}

func TestStore_ConcurrentCreateKeepsOneLiveRecord(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	dest := entity.Email("race@example.com")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if err := s.Create(ctx, newRecord(id, dest, "h", t0)); err == nil {
				wins.Add(1)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("live records created = %d, want 1", wins.Load())
	}
}

func TestStore_FindLiveIgnoresExpiredAndConsumed(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	dest := entity.Phone("12345678")
	_ = s.Create(ctx, newRecord(1, dest, "h", t0))

	if _, err := s.FindLive(ctx, dest, t0.Add(10*time.Minute)); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("expired record returned: %v", err)
	}

	if err := s.MarkConsumed(ctx, 1); err != nil {
		t.Fatalf("MarkConsumed: %v", err)
	}
	if _, err := s.FindLive(ctx, dest, t0); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("consumed record returned: %v", err)
	}
	if err := s.MarkConsumed(ctx, 1); !errors.Is(err, entity.ErrAlreadyConsumed) {
		t.Fatalf("second MarkConsumed err = %v", err)
	}
}

func TestStore_VerifyTransitions(t *testing.T) {
	ctx := context.Background()
	dest := entity.Phone("9999999999")

	t.Run("correct code succeeds once", func(t *testing.T) {
		s := NewStore()
		_ = s.Create(ctx, newRecord(1, dest, "good", t0))

		first, _ := s.Verify(ctx, dest, "good", t0.Add(time.Minute))
		second, _ := s.Verify(ctx, dest, "good", t0.Add(time.Minute))

		if first.Status != entity.VerifyStatusVerified || !first.Record.Consumed {
			t.Fatalf("first = %+v", first)
		}
		if second.Status != entity.VerifyStatusAlreadyUsed {
			t.Fatalf("second status = %v", second.Status)
		}
	})

	t.Run("wrong codes exhaust the record", func(t *testing.T) {
		s := NewStore()
		_ = s.Create(ctx, newRecord(1, dest, "good", t0))

		var got []entity.VerifyStatus
		for range 3 {
			res, _ := s.Verify(ctx, dest, "bad", t0)
			got = append(got, res.Status)
		}
		last, _ := s.Verify(ctx, dest, "good", t0)

		want := []entity.VerifyStatus{entity.VerifyStatusInvalidCode, entity.VerifyStatusInvalidCode, entity.VerifyStatusExhausted}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("attempt %d status = %v, want %v", i+1, got[i], want[i])
			}
		}
		if last.Status != entity.VerifyStatusExhausted {
			t.Fatalf("correct code after exhaustion = %v", last.Status)
		}
		if last.Record.Attempts != 4 {
			t.Fatalf("attempts = %d, want 4", last.Record.Attempts)
		}
	})

	t.Run("expired record", func(t *testing.T) {
		s := NewStore()
		_ = s.Create(ctx, newRecord(1, dest, "good", t0))

		res, _ := s.Verify(ctx, dest, "good", t0.Add(10*time.Minute))
		if res.Status != entity.VerifyStatusExpired {
			t.Fatalf("status = %v", res.Status)
		}
	})

	t.Run("no record", func(t *testing.T) {
		res, _ := NewStore().Verify(ctx, dest, "good", t0)
		if res.Status != entity.VerifyStatusInvalidCode || res.Record != nil {
			t.Fatalf("res = %+v", res)
		}
	})
}

func TestStore_ConcurrentVerifySucceedsOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	dest := entity.Email("once@example.com")
	_ = s.Create(ctx, newRecord(1, dest, "good", t0))

	var verified atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Verify(ctx, dest, "good", t0)
			if err == nil && res.Status == entity.VerifyStatusVerified {
				verified.Add(1)
			}
		}()
	}
	wg.Wait()

	if verified.Load() != 1 {
		t.Fatalf("verified = %d, want 1", verified.Load())
	}
}

func TestStore_RedeemAndPrune(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	dest := entity.Email("r@example.com")
	_ = s.Create(ctx, newRecord(1, dest, "good", t0))
	_ = s.Create(ctx, newRecord(2, entity.Phone("87654321"), "x", t0))

	if _, err := s.Redeem(ctx, 1, dest); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("redeem of unconsumed record err = %v", err)
	}

	_, _ = s.Verify(ctx, dest, "good", t0)

	if _, err := s.Redeem(ctx, 1, entity.Email("other@example.com")); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("redeem with wrong destination err = %v", err)
	}
	rec, err := s.Redeem(ctx, 1, dest)
	if err != nil || rec.ID != 1 {
		t.Fatalf("Redeem = %+v, %v", rec, err)
	}
	if _, err := s.Redeem(ctx, 1, dest); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("second redeem err = %v", err)
	}

	n, err := s.PruneExpired(ctx, t0.Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("PruneExpired = %d, %v", n, err)
	}
}

func TestStore_LookupsOnUnknownDestinationsDoNotGrow(t *testing.T) {
	// Arrange
	ctx := context.Background()
	s := NewStore()

	// Act
	for i := range 50 {
		dest := entity.Email(fmt.Sprintf("u%d@b.io", i))
		_, _ = s.FindLive(ctx, dest, t0)
		_, _ = s.LoadForVerification(ctx, dest, "h", t0)
		res, err := s.Verify(ctx, dest, "h", t0)
		if err != nil || res.Status != entity.VerifyStatusInvalidCode {
			t.Fatalf("Verify = %+v, %v", res, err)
		}
		_, _ = s.Redeem(ctx, int64(i), dest)
	}

	// Assert
	if got := s.size(); got != 0 {
		t.Fatalf("slots = %d, want 0", got)
	}
}

func TestStore_PruneUnlinksEmptySlots(t *testing.T) {
	// Arrange
	ctx := context.Background()
	s := NewStore()
	dest := entity.Phone("9999999999")
	if err := s.Create(ctx, newRecord(1, dest, "h1", t0)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Act
	pruned, err := s.PruneExpired(ctx, t0.Add(time.Hour))

	// Assert
	if err != nil || pruned != 1 {
		t.Fatalf("PruneExpired = %d, %v", pruned, err)
	}
	if got := s.size(); got != 0 {
		t.Fatalf("slots = %d, want 0", got)
	}
	if err := s.Create(ctx, newRecord(2, dest, "h2", t0.Add(2*time.Hour))); err != nil {
		t.Fatalf("Create after unlink: %v", err)
	}
	if _, err := s.FindLive(ctx, dest, t0.Add(2*time.Hour)); err != nil {
		t.Fatalf("FindLive after unlink: %v", err)
	}
}

func TestRegistry_IsRegistered(t *testing.T) {
	r := NewRegistry(entity.Email("taken@example.com"))
	r.Add(entity.Phone("12345678"))

	for _, d := range []entity.Destination{entity.Email("taken@example.com"), entity.Phone("12345678")} {
		if ok, _ := r.IsRegistered(context.Background(), d); !ok {
			t.Fatalf("%s should be registered", d.Key())
		}
	}
	if ok, _ := r.IsRegistered(context.Background(), entity.Phone("taken@example.com")); ok {
		t.Fatalf("channel must be part of the key")
	}
}
