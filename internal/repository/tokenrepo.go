package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/user-admin/internal/model"
)

// TokenRepository stores activation tokens and revoked access tokens.
type TokenRepository interface {
	// CreateVerification stores a new activation token.
	CreateVerification(ctx context.Context, vt model.VerificationToken) error
	// ConsumeVerification deletes the token and returns it. Unknown or expired tokens
	// yield errs.ErrInvalidToken.
	ConsumeVerification(ctx context.Context, token uuid.UUID, now time.Time) (model.VerificationToken, error)
	// Revoke blocks an access token (by jti) until it would have expired anyway.
	Revoke(ctx context.Context, jti uuid.UUID, expiresAt time.Time) error
	// IsRevoked reports whether jti was revoked.
	IsRevoked(ctx context.Context, jti uuid.UUID) (bool, error)
}
