package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/user-admin/internal/errs"
	"github.com/and161185/user-admin/internal/model"
)

// TokenRepo implements TokenRepository using PostgreSQL.
type TokenRepo struct{ db *DB }

// NewTokenRepo constructs a token repository.
func NewTokenRepo(db *DB) *TokenRepo { return &TokenRepo{db: db} }

// CreateVerification stores an activation token.
func (r *TokenRepo) CreateVerification(ctx context.Context, vt model.VerificationToken) error {
	const q = `INSERT INTO verification_tokens (token, user_id, expires_at) VALUES ($1, $2, $3)`
	_, err := r.db.Pool.Exec(ctx, q, vt.Token, vt.UserID, vt.ExpiresAt)
	return err
}

// ConsumeVerification removes the token inside a transaction and returns it if still valid.
func (r *TokenRepo) ConsumeVerification(ctx context.Context, token uuid.UUID, now time.Time) (model.VerificationToken, error) {
	const sel = `SELECT token, user_id, expires_at FROM verification_tokens WHERE token=$1 FOR UPDATE`
	const del = `DELETE FROM verification_tokens WHERE token=$1`

	var vt model.VerificationToken
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, sel, token).Scan(&vt.Token, &vt.UserID, &vt.ExpiresAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrInvalidToken
			}
			return err
		}
		_, err := tx.Exec(ctx, del, token)
		return err
	})
	if err != nil {
		return model.VerificationToken{}, err
	}
	// the expired row is gone either way
	if !now.Before(vt.ExpiresAt) {
		return model.VerificationToken{}, errs.ErrInvalidToken
	}
	return vt, nil
}

// Revoke records jti as revoked. Revoking twice is not an error.
func (r *TokenRepo) Revoke(ctx context.Context, jti uuid.UUID, expiresAt time.Time) error {
	const q = `INSERT INTO revoked_tokens (jti, expires_at) VALUES ($1, $2) ON CONFLICT (jti) DO NOTHING`
	_, err := r.db.Pool.Exec(ctx, q, jti, expiresAt)
	return err
}

// IsRevoked reports whether jti is on the revocation list.
func (r *TokenRepo) IsRevoked(ctx context.Context, jti uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti=$1)`
	var revoked bool
	if err := r.db.Pool.QueryRow(ctx, q, jti).Scan(&revoked); err != nil {
		return false, err
	}
	return revoked, nil
}
