// Package errs contains sentinel errors and the tagged Fault used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across client, service and repository layers.
var (
	// ErrNotFound indicates the requested user or token does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the target changed state underneath the caller (e.g. already deleted).
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized indicates a missing, expired or revoked credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller lacking the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g. email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidToken indicates an unknown or expired verification token.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInactive indicates a login attempt for an account that is not activated or is locked.
	ErrInactive = errors.New("account inactive")
)
