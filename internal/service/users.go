package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/user-admin/internal/convert"
	pkgcrypto "github.com/and161185/user-admin/internal/crypto"
	"github.com/and161185/user-admin/internal/errs"
	"github.com/and161185/user-admin/internal/model"
	"github.com/and161185/user-admin/internal/repository"
)

// MaxPageSize bounds the list limit.
const MaxPageSize = 100

// UserService defines the administrative user operations.
type UserService interface {
	// List returns one page of users and the total number of matches.
	List(ctx context.Context, q model.ListQuery) ([]model.User, int, error)
	Get(ctx context.Context, id uuid.UUID) (model.User, error)
	Create(ctx context.Context, p model.UserPayload) (model.User, error)
	// Update applies a partial update. Setting active to true also lifts a soft delete.
	Update(ctx context.Context, id uuid.UUID, upd model.UserUpdate) (model.User, error)
	// Delete soft-deletes a user. Admins cannot delete themselves.
	Delete(ctx context.Context, actor model.User, id uuid.UUID) error
	// UpdatePassword changes a password; the owner must prove the old one, admins may reset.
	UpdatePassword(ctx context.Context, actor model.User, id uuid.UUID, ch model.PasswordChange) error
}

type UserServiceImpl struct {
	users repository.UserRepository
	log   *zap.Logger
}

var _ UserService = (*UserServiceImpl)(nil)

// NewUserService constructs UserService.
func NewUserService(users repository.UserRepository, log *zap.Logger) *UserServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserServiceImpl{users: users, log: log}
}

// List validates paging and search parameters and delegates to the repository.
func (s *UserServiceImpl) List(ctx context.Context, q model.ListQuery) ([]model.User, int, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	q.Search = strings.TrimSpace(q.Search)
	err := validation.ValidateStruct(&q,
		validation.Field(&q.Page, validation.Min(1)),
		validation.Field(&q.Limit, validation.Required, validation.Min(1), validation.Max(MaxPageSize)),
		validation.Field(&q.SearchBy, validation.In("id", "name", "fullName", "email")),
	)
	if err != nil {
		return nil, 0, errs.Validation(err)
	}
	return s.users.List(ctx, q)
}

func (s *UserServiceImpl) Get(ctx context.Context, id uuid.UUID) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	return *u, nil
}

func (s *UserServiceImpl) Create(ctx context.Context, p model.UserPayload) (model.User, error) {
	if err := p.Validate(); err != nil {
		return model.User{}, errs.Validation(err)
	}
	dob, err := convert.ParseDate(p.Dob)
	if err != nil {
		return model.User{}, errs.Validation(err)
	}
	hash, err := pkgcrypto.HashPassword(p.Password)
	if err != nil {
		return model.User{}, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return model.User{}, err
	}
	u := &model.User{
		ID:           id,
		Email:        strings.ToLower(strings.TrimSpace(p.Email)),
		FullName:     strings.TrimSpace(p.FullName),
		PasswordHash: hash,
		Phone:        p.Phone,
		Dob:          dob,
		Avatar:       p.Avatar,
		Roles:        p.RoleNames,
		Active:       p.Active,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return model.User{}, err
	}
	s.log.Info("user created", zap.String("user", u.ID.String()))
	return *u, nil
}

func (s *UserServiceImpl) Update(ctx context.Context, id uuid.UUID, upd model.UserUpdate) (model.User, error) {
	if err := upd.Validate(); err != nil {
		return model.User{}, errs.Validation(err)
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if err := apply(u, upd); err != nil {
		return model.User{}, err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return model.User{}, err
	}
	s.log.Info("user updated", zap.String("user", id.String()), zap.Bool("active", u.Active), zap.Bool("deleted", u.Deleted))
	return *u, nil
}

func apply(u *model.User, upd model.UserUpdate) error {
	if upd.FullName != nil {
		u.FullName = strings.TrimSpace(*upd.FullName)
	}
	if upd.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*upd.Email))
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Avatar != nil {
		u.Avatar = *upd.Avatar
	}
	if upd.Dob != nil {
		dob, err := convert.ParseDate(*upd.Dob)
		if err != nil {
			return errs.Validation(err)
		}
		u.Dob = dob
	}
	if upd.RoleNames != nil {
		u.Roles = *upd.RoleNames
	}
	if upd.Active != nil {
		u.Active = *upd.Active
		if u.Active {
			u.Deleted = false
		}
	}
	if upd.Password != nil {
		hash, err := pkgcrypto.HashPassword(*upd.Password)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
	}
	return nil
}

func (s *UserServiceImpl) Delete(ctx context.Context, actor model.User, id uuid.UUID) error {
	if actor.ID == id {
		return fmt.Errorf("%w: cannot delete your own account", errs.ErrConflict)
	}
	if err := s.users.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.log.Info("user deleted", zap.String("user", id.String()), zap.String("by", actor.ID.String()))
	return nil
}

func (s *UserServiceImpl) UpdatePassword(ctx context.Context, actor model.User, id uuid.UUID, ch model.PasswordChange) error {
	if err := ch.Validate(); err != nil {
		return errs.Validation(err)
	}
	self := actor.ID == id
	if !self && !actor.HasRole(model.RoleAdmin) {
		return errs.ErrForbidden
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if self {
		ok, err := pkgcrypto.VerifyPassword(ch.OldPassword, u.PasswordHash)
		if err != nil {
			return err
		}
		if !ok {
			return errs.Validation(errors.New("oldPassword: does not match"))
		}
	}
	hash, err := pkgcrypto.HashPassword(ch.NewPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return s.users.Update(ctx, u)
}
