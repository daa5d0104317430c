// Package model defines domain entities and wire shapes shared by the console and the directory.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Well-known role names.
const (
	RoleAdmin  = "Admin"
	RoleUser   = "User"
	RoleEditor = "Editor"
)

// Roles lists every role the directory accepts.
var Roles = []string{RoleAdmin, RoleUser, RoleEditor}

// Tokens collects an issued access token and its identity (jti) for revocation.
type Tokens struct {
	AccessToken string
	TokenID     uuid.UUID
	ExpiresAt   time.Time
}

// User is an account stored by the directory.
type User struct {
	ID           uuid.UUID
	Email        string // unique
	FullName     string
	PasswordHash string // encoded argon2id, see internal/crypto
	Phone        string
	Dob          *time.Time
	Avatar       string
	Roles        []string
	Active       bool
	Deleted      bool // soft delete tombstone
	LastLogin    *time.Time
	CreatedAt    time.Time
}

// HasRole reports whether the user carries role r.
func (u User) HasRole(r string) bool {
	for _, have := range u.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// VerificationToken activates a freshly registered account.
type VerificationToken struct {
	Token     uuid.UUID
	UserID    uuid.UUID
	ExpiresAt time.Time
}

// ListQuery is a page request against the directory.
type ListQuery struct {
	Page     int // 1-based
	Limit    int
	Search   string
	SearchBy string
}

// Offset returns the row offset for the query.
func (q ListQuery) Offset() int { return (q.Page - 1) * q.Limit }
