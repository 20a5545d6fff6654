package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/otpgate/internal/otp/entity"
)

const recordColumns = `id, channel, identifier, code_hash, created_at, expires_at, consumed, attempts, max_attempts`

const (
	queryFindLive = `SELECT ` + recordColumns + ` FROM otp_records
		WHERE channel = $1 AND identifier = $2 AND NOT consumed AND expires_at > $3
		ORDER BY id DESC LIMIT 1`

	queryLoadForVerification = `SELECT ` + recordColumns + ` FROM otp_records
		WHERE channel = $1 AND identifier = $2 AND code_hash = $3
			AND NOT consumed AND expires_at > $4 AND attempts < max_attempts
		ORDER BY id DESC LIMIT 1`

	queryLatest = `SELECT ` + recordColumns + ` FROM otp_records
		WHERE channel = $1 AND identifier = $2
		ORDER BY id DESC LIMIT 1`

	queryDeleteExpiredUnconsumed = `DELETE FROM otp_records
		WHERE channel = $1 AND identifier = $2 AND NOT consumed AND expires_at <= $3`

	queryInsert = `INSERT INTO otp_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	queryMarkConsumed = `UPDATE otp_records SET consumed = TRUE WHERE id = $1 AND NOT consumed`

	queryIncrementAttempts = `UPDATE otp_records SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`

	queryDelete = `DELETE FROM otp_records WHERE id = $1`

	queryRedeem = `DELETE FROM otp_records
		WHERE id = $1 AND channel = $2 AND identifier = $3 AND consumed
		RETURNING ` + recordColumns

	queryPrune = `DELETE FROM otp_records WHERE expires_at < $1`
)

func scanRecord(row pgx.Row) (*entity.Record, error) {
	var (
		r       entity.Record
		channel int16
	)
	err := row.Scan(
		&r.ID,
		&channel,
		&r.Destination.Identifier,
		&r.CodeHash,
		&r.CreatedAt,
		&r.ExpiresAt,
		&r.Consumed,
		&r.Attempts,
		&r.MaxAttempts,
	)
	if err != nil {
		return nil, err
	}
	r.Destination.Channel = entity.Channel(channel)
	return &r, nil
}

func (s *DB) FindLive(ctx context.Context, dest entity.Destination, now time.Time) (rec *entity.Record, err error) {
	ctx, span := s.startSpan(ctx, "FindLive")
	defer func() { s.endSpan(span, err) }()

	rec, err = scanRecord(s.conn.QueryRow(ctx, queryFindLive, int16(dest.Channel), dest.Identifier, now))
	err = s.mapError(err)
	return rec, err
}

func (s *DB) LoadForVerification(ctx context.Context, dest entity.Destination, codeHash string, now time.Time) (rec *entity.Record, err error) {
	ctx, span := s.startSpan(ctx, "LoadForVerification")
	defer func() { s.endSpan(span, err) }()

	rec, err = s.loadForVerification(ctx, s.conn, dest, codeHash, now, false)
	return rec, err
}

func (s *DB) loadForVerification(ctx context.Context, q querier, dest entity.Destination, codeHash string, now time.Time, lock bool) (*entity.Record, error) {
	query := queryLoadForVerification
	if lock {
		query += ` FOR UPDATE`
	}

	rec, err := scanRecord(q.QueryRow(ctx, query, int16(dest.Channel), dest.Identifier, codeHash, now))
	return rec, s.mapError(err)
}

func (s *DB) latest(ctx context.Context, q querier, dest entity.Destination) (*entity.Record, error) {
	rec, err := scanRecord(q.QueryRow(ctx, queryLatest+` FOR UPDATE`, int16(dest.Channel), dest.Identifier))
	return rec, s.mapError(err)
}

func (s *DB) MarkConsumed(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "MarkConsumed")
	defer func() { s.endSpan(span, err) }()

	err = s.markConsumed(ctx, s.conn, id)
	return err
}

func (s *DB) markConsumed(ctx context.Context, q querier, id int64) error {
	tag, err := q.Exec(ctx, queryMarkConsumed, id)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrAlreadyConsumed
	}
	return nil
}

func (s *DB) IncrementAttempts(ctx context.Context, id int64) (attempts int, err error) {
	ctx, span := s.startSpan(ctx, "IncrementAttempts")
	defer func() { s.endSpan(span, err) }()

	attempts, err = s.incrementAttempts(ctx, s.conn, id)
	return attempts, err
}

func (s *DB) incrementAttempts(ctx context.Context, q querier, id int64) (int, error) {
	var attempts int
	if err := q.QueryRow(ctx, queryIncrementAttempts, id).Scan(&attempts); err != nil {
		return 0, s.mapError(err)
	}
	return attempts, nil
}

func (s *DB) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "Delete")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, queryDelete, id)
	err = s.mapError(err)
	return err
}

func (s *DB) PruneExpired(ctx context.Context, before time.Time) (pruned int64, err error) {
	ctx, span := s.startSpan(ctx, "PruneExpired")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, queryPrune, before)
	if err != nil {
		return 0, s.mapError(err)
	}
	return tag.RowsAffected(), nil
}

// Redeem deletes the consumed record id for dest and returns it.
func (s *DB) Redeem(ctx context.Context, id int64, dest entity.Destination) (rec *entity.Record, err error) {
	ctx, span := s.startSpan(ctx, "Redeem")
	defer func() { s.endSpan(span, err) }()

	rec, err = scanRecord(s.conn.QueryRow(ctx, queryRedeem, id, int16(dest.Channel), dest.Identifier))
	err = s.mapError(err)
	return rec, err
}
