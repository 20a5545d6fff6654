package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

func (s *DB) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rolback", "error", rErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return s.mapError(tx.Commit(ctx))
}

// Create inserts rec. Expired unconsumed records for the same destination are
// removed first so the partial unique index only sees live ones; a
// concurrent writer that loses the race gets goerror.ErrConflict.
func (s *DB) Create(ctx context.Context, rec entity.Record) (err error) {
	ctx, span := s.startSpan(ctx, "Create")
	defer func() { s.endSpan(span, err) }()

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		ch := int16(rec.Destination.Channel)

		if _, err := tx.Exec(ctx, queryDeleteExpiredUnconsumed, ch, rec.Destination.Identifier, rec.CreatedAt); err != nil {
			return s.mapError(err)
		}

		_, err := tx.Exec(ctx, queryInsert,
			rec.ID,
			ch,
			rec.Destination.Identifier,
			rec.CodeHash,
			rec.CreatedAt,
			rec.ExpiresAt,
			rec.Consumed,
			rec.Attempts,
			rec.MaxAttempts,
		)
		return s.mapError(err)
	})
	return err
}

// Verify runs one verification attempt in a single transaction. The matched
// or newest record is locked with FOR UPDATE so concurrent attempts for the
// same destination are serialized.
func (s *DB) Verify(ctx context.Context, dest entity.Destination, codeHash string, now time.Time) (res *entity.VerifyResult, err error) {
	ctx, span := s.startSpan(ctx, "Verify")
	defer func() { s.endSpan(span, err) }()

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		rec, err := s.loadForVerification(ctx, tx, dest, codeHash, now, true)
		if err == nil {
			if err := s.markConsumed(ctx, tx, rec.ID); err != nil {
				return err
			}
			rec.Consumed = true
			res = &entity.VerifyResult{Status: entity.VerifyStatusVerified, Record: rec}
			return nil
		}
		if !errors.Is(err, goerror.ErrNotFound) {
			return err
		}

		latest, err := s.latest(ctx, tx, dest)
		if errors.Is(err, goerror.ErrNotFound) {
			res = &entity.VerifyResult{Status: entity.VerifyStatusInvalidCode}
			return nil
		}
		if err != nil {
			return err
		}

		status, count := entity.Classify(latest, now)
		if count {
			attempts, err := s.incrementAttempts(ctx, tx, latest.ID)
			if err != nil {
				return err
			}
			latest.Attempts = attempts
			status = entity.AfterIncrement(attempts, latest.MaxAttempts)
		}

		res = &entity.VerifyResult{Status: status, Record: latest}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}
