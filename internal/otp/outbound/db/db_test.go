package db

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func newDB(t *testing.T) (*DB, *pgxpool.Pool) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:17-alpine",
		tcpostgres.WithDatabase("otpgate"),
		tcpostgres.WithUsername("otpgate"),
		tcpostgres.WithPassword("otpgate"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	// applying twice must be harmless
	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("Migrate again: %v", err)
	}

	return NewDB(pool, instrument.NewNoop()), pool
}

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

func TestDB_RecordLifecycle(t *testing.T) {
	db, _ := newDB(t)
	ctx := context.Background()
	dest := entity.Phone("9999999999")

	t.Run("create and find live", func(t *testing.T) {
		if err := db.Create(ctx, newRecord(1, dest, "good", t0)); err != nil {
			t.Fatalf("Create: %v", err)
		}

		live, err := db.FindLive(ctx, dest, t0.Add(time.Minute))
		if err != nil {
			t.Fatalf("FindLive: %v", err)
		}
		if live.ID != 1 || live.Attempts != 0 || live.Consumed || live.Destination != dest {
			t.Fatalf("unexpected record: %+v", live)
		}
	})

	t.Run("second live record conflicts", func(t *testing.T) {
		err := db.Create(ctx, newRecord(2, dest, "other", t0.Add(time.Minute)))
		if !errors.Is(err, goerror.ErrConflict) {
			t.Fatalf("err = %v, want ErrConflict", err)
		}
	})

	t.Run("load for verification matches digest only", func(t *testing.T) {
		if _, err := db.LoadForVerification(ctx, dest, "bad", t0); !errors.Is(err, goerror.ErrNotFound) {
			t.Fatalf("wrong digest err = %v", err)
		}
		if _, err := db.LoadForVerification(ctx, entity.Email("9999999999"), "good", t0); !errors.Is(err, goerror.ErrNotFound) {
			t.Fatalf("wrong channel err = %v", err)
		}
		rec, err := db.LoadForVerification(ctx, dest, "good", t0)
		if err != nil || rec.ID != 1 {
			t.Fatalf("LoadForVerification = %+v, %v", rec, err)
		}
	})

	t.Run("verify consumes once", func(t *testing.T) {
		first, err := db.Verify(ctx, dest, "good", t0.Add(time.Minute))
		if err != nil || first.Status != entity.VerifyStatusVerified {
			t.Fatalf("first = %+v, %v", first, err)
		}
		second, err := db.Verify(ctx, dest, "good", t0.Add(time.Minute))
		if err != nil || second.Status != entity.VerifyStatusAlreadyUsed {
			t.Fatalf("second = %+v, %v", second, err)
		}
		if err := db.MarkConsumed(ctx, 1); !errors.Is(err, entity.ErrAlreadyConsumed) {
			t.Fatalf("MarkConsumed err = %v", err)
		}
	})

	t.Run("redeem deletes consumed record once", func(t *testing.T) {
		rec, err := db.Redeem(ctx, 1, dest)
		if err != nil || rec.ID != 1 || !rec.Consumed {
			t.Fatalf("Redeem = %+v, %v", rec, err)
		}
		if _, err := db.Redeem(ctx, 1, dest); !errors.Is(err, goerror.ErrNotFound) {
			t.Fatalf("second Redeem err = %v", err)
		}
	})
}

func TestDB_VerifyExhaustionAndExpiry(t *testing.T) {
	db, _ := newDB(t)
	ctx := context.Background()

	dest := entity.Email("user@example.com")
	if err := db.Create(ctx, newRecord(10, dest, "good", t0)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	want := []entity.VerifyStatus{entity.VerifyStatusInvalidCode, entity.VerifyStatusInvalidCode, entity.VerifyStatusExhausted}
	for i, w := range want {
		res, err := db.Verify(ctx, dest, "bad", t0)
		if err != nil || res.Status != w {
			t.Fatalf("attempt %d = %+v, %v; want %v", i+1, res, err, w)
		}
	}

	res, err := db.Verify(ctx, dest, "good", t0)
	if err != nil || res.Status != entity.VerifyStatusExhausted {
		t.Fatalf("correct code after exhaustion = %+v, %v", res, err)
	}

	res, err = db.Verify(ctx, dest, "good", t0.Add(10*time.Minute))
	if err != nil || res.Status != entity.VerifyStatusExpired {
		t.Fatalf("after expiry = %+v, %v", res, err)
	}

	// the expired record no longer blocks a new one
	if err := db.Create(ctx, newRecord(11, dest, "next", t0.Add(10*time.Minute))); err != nil {
		t.Fatalf("Create after expiry: %v", err)
	}

	n, err := db.PruneExpired(ctx, t0.Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("PruneExpired = %d, %v", n, err)
	}
}

func TestDB_ConcurrentCreateAndVerify(t *testing.T) {
	db, _ := newDB(t)
	ctx := context.Background()
	dest := entity.Phone("+6281234567")

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if err := db.Create(ctx, newRecord(id, dest, "good", t0)); err == nil {
				created.Add(1)
			}
		}(int64(100 + i))
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Fatalf("created = %d, want 1", created.Load())
	}

	var verified atomic.Int32
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := db.Verify(ctx, dest, "good", t0)
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

func TestDB_IsRegistered(t *testing.T) {
	db, pool := newDB(t)
	ctx := context.Background()

	if _, err := pool.Exec(ctx, `INSERT INTO accounts (id, email, phone) VALUES (1, 'Taken@Example.com', '12345678')`); err != nil {
		t.Fatalf("seed accounts: %v", err)
	}

	cases := map[entity.Destination]bool{
		entity.Email("taken@example.com"): true,
		entity.Phone("12345678"):          true,
		entity.Email("free@example.com"):  false,
		entity.Phone("87654321"):          false,
	}

	for dest, want := range cases {
		got, err := db.IsRegistered(ctx, dest)
		if err != nil || got != want {
			t.Fatalf("IsRegistered(%s) = %v, %v; want %v", dest.Key(), got, err, want)
		}
	}
}
