package httpserver

import (
	"context"
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/user-admin/internal/errs"
	"github.com/and161185/user-admin/internal/model"
	"github.com/and161185/user-admin/internal/service"
)

// fakeAuth maps bearer tokens to users.
type fakeAuth struct {
	mu       sync.Mutex
	sessions map[string]model.User
	loginErr error
	loginIP  string
	revoked  []string
}

var _ service.AuthService = (*fakeAuth)(nil)

func (f *fakeAuth) Register(_ context.Context, req model.RegisterRequest) (model.User, error) {
	if err := req.Validate(); err != nil {
		return model.User{}, errs.Validation(err)
	}
	return model.User{ID: uuid.Must(uuid.NewV4()), Email: req.Email, FullName: req.FullName, Roles: []string{model.RoleUser}}, nil
}

func (f *fakeAuth) Login(_ context.Context, cr model.Credentials, ip string) (model.Tokens, model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginIP = ip
	if f.loginErr != nil {
		return model.Tokens{}, model.User{}, f.loginErr
	}
	return model.Tokens{AccessToken: "tok-" + cr.Email}, model.User{Email: cr.Email}, nil
}

func (f *fakeAuth) Logout(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[token]; !ok {
		return errs.ErrUnauthorized
	}
	delete(f.sessions, token)
	f.revoked = append(f.revoked, token)
	return nil
}

func (f *fakeAuth) Refresh(ctx context.Context, token string) (model.Tokens, error) {
	u, err := f.Authenticate(ctx, token)
	if err != nil {
		return model.Tokens{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, token)
	f.sessions[token+"-r"] = u
	return model.Tokens{AccessToken: token + "-r"}, nil
}

func (f *fakeAuth) SendVerification(_ context.Context, email string) error {
	if email == "active@example.com" {
		return errs.ErrConflict
	}
	return nil
}

func (f *fakeAuth) Activate(_ context.Context, token string) error {
	if token != "good" {
		return errs.ErrInvalidToken
	}
	return nil
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.sessions[token]
	if !ok {
		return model.User{}, errs.ErrUnauthorized
	}
	return u, nil
}

// fakeUsers records calls and returns canned results.
type fakeUsers struct {
	mu       sync.Mutex
	lastList model.ListQuery
	lastUpd  model.UserUpdate
	users    map[uuid.UUID]model.User
	pwErr    error
	panicky  bool
}

var _ service.UserService = (*fakeUsers)(nil)

func (f *fakeUsers) List(_ context.Context, q model.ListQuery) ([]model.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicky {
		panic("list exploded")
	}
	f.lastList = q
	if q.Limit > service.MaxPageSize {
		return nil, 0, errs.Validation(errs.ErrConflict)
	}
	var out []model.User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, 23, nil
}

func (f *fakeUsers) Get(_ context.Context, id uuid.UUID) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.User{}, errs.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) Create(_ context.Context, p model.UserPayload) (model.User, error) {
	if err := p.Validate(); err != nil {
		return model.User{}, errs.Validation(err)
	}
	return model.User{ID: uuid.Must(uuid.NewV4()), Email: p.Email, FullName: p.FullName, Roles: p.RoleNames, Active: p.Active}, nil
}

func (f *fakeUsers) Update(_ context.Context, id uuid.UUID, upd model.UserUpdate) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUpd = upd
	u, ok := f.users[id]
	if !ok {
		return model.User{}, errs.ErrNotFound
	}
	if upd.Active != nil {
		u.Active = *upd.Active
	}
	return u, nil
}

func (f *fakeUsers) Delete(_ context.Context, actor model.User, id uuid.UUID) error {
	if actor.ID == id {
		return errs.ErrConflict
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUsers) UpdatePassword(context.Context, model.User, uuid.UUID, model.PasswordChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pwErr
}

func (f *fakeUsers) listed() model.ListQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastList
}

func (f *fakeUsers) updated() model.UserUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastUpd
}

func (f *fakeAuth) ip() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginIP
}

func (f *fakeAuth) revokedTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.revoked...)
}
