package service

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/user-admin/internal/errs"
	"github.com/and161185/user-admin/internal/limiter"
	"github.com/and161185/user-admin/internal/model"
	"github.com/and161185/user-admin/internal/repository"
)

type fakeUsers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.User

	createErr error
	lastList  model.ListQuery
	touched   int
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers(us ...*model.User) *fakeUsers {
	f := &fakeUsers{byID: map[uuid.UUID]*model.User{}}
	for _, u := range us {
		f.byID[u.ID] = u
	}
	return f
}

func clone(u *model.User) *model.User {
	c := *u
	c.Roles = slices.Clone(u.Roles)
	return &c
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, have := range f.byID {
		if strings.EqualFold(have.Email, u.Email) {
			return errs.ErrAlreadyExists
		}
	}
	u.CreatedAt = time.Now()
	f.byID[u.ID] = clone(u)
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return clone(u), nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			return clone(u), nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) List(_ context.Context, q model.ListQuery) ([]model.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastList = q
	var out []model.User
	for _, u := range f.byID {
		out = append(out, *clone(u))
	}
	return out, len(out), nil
}

func (f *fakeUsers) Update(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[u.ID]; !ok {
		return errs.ErrNotFound
	}
	f.byID[u.ID] = clone(u)
	return nil
}

func (f *fakeUsers) SoftDelete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.Deleted {
		return errs.ErrNotFound
	}
	u.Deleted = true
	return nil
}

func (f *fakeUsers) TouchLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.LastLogin = &at
		f.touched++
	}
	return nil
}

type fakeTokens struct {
	mu      sync.Mutex
	verify  map[uuid.UUID]model.VerificationToken
	revoked map[uuid.UUID]time.Time
}

var _ repository.TokenRepository = (*fakeTokens)(nil)

func newFakeTokens() *fakeTokens {
	return &fakeTokens{verify: map[uuid.UUID]model.VerificationToken{}, revoked: map[uuid.UUID]time.Time{}}
}

func (f *fakeTokens) CreateVerification(_ context.Context, vt model.VerificationToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verify[vt.Token] = vt
	return nil
}

func (f *fakeTokens) ConsumeVerification(_ context.Context, token uuid.UUID, now time.Time) (model.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vt, ok := f.verify[token]
	delete(f.verify, token)
	if !ok || !now.Before(vt.ExpiresAt) {
		return model.VerificationToken{}, errs.ErrInvalidToken
	}
	return vt, nil
}

func (f *fakeTokens) Revoke(_ context.Context, jti uuid.UUID, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[jti] = exp
	return nil
}

func (f *fakeTokens) IsRevoked(_ context.Context, jti uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.revoked[jti]
	return ok, nil
}

type fakeLimiter struct {
	allowOK     bool
	allowErr    error
	failBlocked bool

	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	return l.allowOK, 0, l.allowErr
}

func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return nil
}

func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, nil
}

type sentMail struct{ to, link string }

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

var _ Mailer = (*fakeMailer)(nil)

func (m *fakeMailer) SendActivation(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, link})
	return nil
}

func (m *fakeMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}
