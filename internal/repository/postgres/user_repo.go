package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/user-admin/internal/errs"
	"github.com/and161185/user-admin/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, email, full_name, password_hash, phone, dob, avatar, roles, active, deleted, last_login, created_at`

// searchColumns maps the searchBy values of the list endpoint to SQL expressions.
var searchColumns = map[string]string{
	"id":       "id::text",
	"name":     "full_name",
	"fullName": "full_name",
	"email":    "email",
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.Phone, &u.Dob,
		&u.Avatar, &u.Roles, &u.Active, &u.Deleted, &u.LastLogin, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, email, full_name, password_hash, phone, dob, avatar, roles, active, deleted)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false)
RETURNING created_at`
	err := r.db.Pool.QueryRow(ctx, q, u.ID, strings.ToLower(u.Email), u.FullName, u.PasswordHash,
		u.Phone, u.Dob, u.Avatar, u.Roles, u.Active).Scan(&u.CreatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := scanUser(r.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	return u, notFound(err)
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, strings.ToLower(email)))
	return u, notFound(err)
}

// List returns a page of users, newest first, and the number of matches.
func (r *UserRepo) List(ctx context.Context, q model.ListQuery) ([]model.User, int, error) {
	where, args, err := listFilter(q)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, q.Limit, q.Offset())
	sql := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)-1, len(args))
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.User, 0, q.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *u)
	}
	return out, total, rows.Err()
}

func listFilter(q model.ListQuery) (string, []any, error) {
	term := strings.TrimSpace(q.Search)
	if term == "" {
		return "", nil, nil
	}
	pattern := "%" + escapeLike(term) + "%"
	if q.SearchBy == "" {
		return ` WHERE (full_name ILIKE $1 OR email ILIKE $1)`, []any{pattern}, nil
	}
	col, ok := searchColumns[q.SearchBy]
	if !ok {
		return "", nil, fmt.Errorf("unknown search field %q", q.SearchBy)
	}
	return ` WHERE ` + col + ` ILIKE $1`, []any{pattern}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// Update overwrites the mutable columns of u.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	const q = `
UPDATE users
SET email=$2, full_name=$3, password_hash=$4, phone=$5, dob=$6, avatar=$7, roles=$8, active=$9, deleted=$10
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, u.ID, strings.ToLower(u.Email), u.FullName, u.PasswordHash,
		u.Phone, u.Dob, u.Avatar, u.Roles, u.Active, u.Deleted)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SoftDelete sets the tombstone on a live user.
func (r *UserRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE users SET deleted=true WHERE id=$1 AND deleted=false`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// TouchLogin stores the last successful login time.
func (r *UserRepo) TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE users SET last_login=$2 WHERE id=$1`, id, at)
	return err
}
