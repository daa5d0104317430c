// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/user-admin/internal/model"
)

// UserRepository provides access to directory accounts. Soft-deleted rows stay visible.
type UserRepository interface {
	// Create inserts a new user; a taken email yields errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by email, case-insensitively.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// List returns one page matching q and the total number of matches.
	List(ctx context.Context, q model.ListQuery) ([]model.User, int, error)
	// Update overwrites the mutable profile fields, status flags and password hash.
	Update(ctx context.Context, u *model.User) error
	// SoftDelete marks the user deleted; an already deleted or missing user yields errs.ErrNotFound.
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// TouchLogin records a successful login.
	TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}
