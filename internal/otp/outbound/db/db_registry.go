package db

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
)

const (
	queryEmailRegistered = `SELECT EXISTS (SELECT 1 FROM accounts WHERE lower(email) = $1)`
	queryPhoneRegistered = `SELECT EXISTS (SELECT 1 FROM accounts WHERE phone = $1)`
)

// IsRegistered reports whether an account already owns dest.
func (s *DB) IsRegistered(ctx context.Context, dest entity.Destination) (registered bool, err error) {
	ctx, span := s.startSpan(ctx, "IsRegistered")
	defer func() { s.endSpan(span, err) }()

	query := queryPhoneRegistered
	if dest.Channel == entity.ChannelEmail {
		query = queryEmailRegistered
	}

	err = s.mapError(s.conn.QueryRow(ctx, query, dest.Identifier).Scan(&registered))
	return registered, err
}
