package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	pkgcrypto "github.com/and161185/user-admin/internal/crypto"
	"github.com/and161185/user-admin/internal/errs"
	"github.com/and161185/user-admin/internal/model"
)

type authFixture struct {
	users  *fakeUsers
	tokens *fakeTokens
	lim    *fakeLimiter
	mail   *fakeMailer
	svc    *AuthServiceImpl
}

func newAuthFixture(t *testing.T, us ...*model.User) *authFixture {
	t.Helper()
	f := &authFixture{
		users:  newFakeUsers(us...),
		tokens: newFakeTokens(),
		lim:    &fakeLimiter{allowOK: true},
		mail:   &fakeMailer{},
	}
	f.svc = NewAuthService(f.users, f.tokens, f.lim, f.mail, AuthConfig{
		SignKey:   []byte("secret"),
		AccessTTL: time.Minute,
		VerifyTTL: time.Hour,
		PublicURL: "http://directory.local/",
	}, zaptest.NewLogger(t))
	return f
}

func activeUser(t *testing.T, email, password string, roles ...string) *model.User {
	t.Helper()
	hash, err := pkgcrypto.HashPassword(password)
	require.NoError(t, err)
	if len(roles) == 0 {
		roles = []string{model.RoleUser}
	}
	return &model.User{ID: uuid.Must(uuid.NewV4()), Email: email, FullName: "Test", PasswordHash: hash, Roles: roles, Active: true}
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	require.Equal(t, "/user/active", u.Path)
	return u.Query().Get("token")
}

func TestAuth_RegisterThenActivate(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, model.RegisterRequest{Email: "bad", Password: "1"})
	var fault *errs.Fault
	require.True(t, errors.As(err, &fault))
	require.Equal(t, errs.KindValidation, fault.Kind)

	u, err := f.svc.Register(ctx, model.RegisterRequest{FullName: "Alice", Email: "Alice@Example.com", Password: "secret1"})
	require.NoError(t, err)
	require.False(t, u.Active)
	require.Equal(t, "alice@example.com", u.Email)
	require.Equal(t, []string{model.RoleUser}, u.Roles)

	_, err = f.svc.Register(ctx, model.RegisterRequest{FullName: "Alice", Email: "alice@example.com", Password: "secret1"})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	mail := f.mail.last()
	require.Equal(t, "alice@example.com", mail.to)
	require.Contains(t, mail.link, "http://directory.local/user/active?token=")

	_, _, err = f.svc.Login(ctx, model.Credentials{Email: "alice@example.com", Password: "secret1"}, "")
	require.ErrorIs(t, err, errs.ErrInactive)

	require.NoError(t, f.svc.Activate(ctx, tokenFromLink(t, mail.link)))
	require.ErrorIs(t, f.svc.Activate(ctx, tokenFromLink(t, mail.link)), errs.ErrInvalidToken, "single use")
	require.ErrorIs(t, f.svc.Activate(ctx, "not-a-uuid"), errs.ErrInvalidToken)

	tok, got, err := f.svc.Login(ctx, model.Credentials{Email: "alice@example.com", Password: "secret1"}, "10.0.0.1:1234")
	require.NoError(t, err)
	require.NotEmpty(t, tok.AccessToken)
	require.NotNil(t, got.LastLogin)
}

func TestAuth_Login_RateLimiterAndCreds(t *testing.T) {
	t.Parallel()
	u := activeUser(t, "alice@example.com", "correct")
	f := newAuthFixture(t, u)
	ctx := context.Background()
	good := model.Credentials{Email: "alice@example.com", Password: "correct"}
	bad := model.Credentials{Email: "alice@example.com", Password: "wrong"}

	f.lim.allowErr = errors.New("lim-err")
	_, _, err := f.svc.Login(ctx, good, "1.2.3.4")
	require.Error(t, err)
	f.lim.allowErr = nil

	f.lim.allowOK = false
	_, _, err = f.svc.Login(ctx, good, "1.2.3.4")
	require.ErrorIs(t, err, errs.ErrRateLimited)
	f.lim.allowOK = true

	_, _, err = f.svc.Login(ctx, model.Credentials{Email: "nobody@example.com", Password: "x"}, "")
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	f.lim.failBlocked = true
	_, _, err = f.svc.Login(ctx, bad, "")
	require.ErrorIs(t, err, errs.ErrRateLimited)
	f.lim.failBlocked = false

	_, _, err = f.svc.Login(ctx, bad, "")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	require.Equal(t, 3, f.lim.failureCalls)

	tok, got, err := f.svc.Login(ctx, good, "127.0.0.1:123")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.True(t, tok.ExpiresAt.After(time.Now()))
	require.NotEqual(t, uuid.Nil, tok.TokenID)
	require.Equal(t, 1, f.lim.successCalls)
	require.Equal(t, 1, f.users.touched)
}

func TestAuth_Login_RejectsLockedAccount(t *testing.T) {
	t.Parallel()
	u := activeUser(t, "locked@example.com", "secret1")
	u.Deleted = true
	f := newAuthFixture(t, u)

	_, _, err := f.svc.Login(context.Background(), model.Credentials{Email: "locked@example.com", Password: "secret1"}, "")
	require.ErrorIs(t, err, errs.ErrInactive)
}

func TestAuth_AuthenticateLogoutRefresh(t *testing.T) {
	t.Parallel()
	u := activeUser(t, "alice@example.com", "secret1")
	f := newAuthFixture(t, u)
	ctx := context.Background()

	tok, _, err := f.svc.Login(ctx, model.Credentials{Email: "alice@example.com", Password: "secret1"}, "")
	require.NoError(t, err)

	got, err := f.svc.Authenticate(ctx, tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	fresh, err := f.svc.Refresh(ctx, tok.AccessToken)
	require.NoError(t, err)
	require.NotEqual(t, tok.TokenID, fresh.TokenID)
	_, err = f.svc.Authenticate(ctx, tok.AccessToken)
	require.ErrorIs(t, err, errs.ErrUnauthorized, "rotated token is revoked")

	require.NoError(t, f.svc.Logout(ctx, fresh.AccessToken))
	_, err = f.svc.Authenticate(ctx, fresh.AccessToken)
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	_, err = f.svc.Authenticate(ctx, "garbage")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestAuth_Authenticate_RejectsBadTokens(t *testing.T) {
	t.Parallel()
	u := activeUser(t, "alice@example.com", "secret1")
	f := newAuthFixture(t, u)
	ctx := context.Background()

	sign := func(key string, claims jwt.RegisteredClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
		require.NoError(t, err)
		return s
	}
	valid := jwt.RegisteredClaims{
		ID:        uuid.Must(uuid.NewV4()).String(),
		Subject:   u.ID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}

	_, err := f.svc.Authenticate(ctx, sign("secret", valid))
	require.NoError(t, err)

	cases := map[string]string{
		"wrong key": sign("other", valid),
		"expired": sign("secret", jwt.RegisteredClaims{ID: valid.ID, Subject: valid.Subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}),
		"no exp":      sign("secret", jwt.RegisteredClaims{ID: valid.ID, Subject: valid.Subject}),
		"no jti":      sign("secret", jwt.RegisteredClaims{Subject: valid.Subject, ExpiresAt: valid.ExpiresAt}),
		"unknown sub": sign("secret", jwt.RegisteredClaims{ID: valid.ID, Subject: uuid.Must(uuid.NewV4()).String(), ExpiresAt: valid.ExpiresAt}),
	}
	for name, tok := range cases {
		_, err := f.svc.Authenticate(ctx, tok)
		require.ErrorIs(t, err, errs.ErrUnauthorized, name)
	}

	u.Active = false
	require.NoError(t, f.users.Update(ctx, u))
	_, err = f.svc.Authenticate(ctx, sign("secret", valid))
	require.ErrorIs(t, err, errs.ErrUnauthorized, "locked after issue")
}

func TestAuth_SendVerification(t *testing.T) {
	t.Parallel()
	active := activeUser(t, "active@example.com", "secret1")
	pending := activeUser(t, "pending@example.com", "secret1")
	pending.Active = false
	f := newAuthFixture(t, active, pending)
	ctx := context.Background()

	require.ErrorIs(t, f.svc.SendVerification(ctx, "active@example.com"), errs.ErrConflict)
	require.ErrorIs(t, f.svc.SendVerification(ctx, "missing@example.com"), errs.ErrNotFound)
	require.NoError(t, f.svc.SendVerification(ctx, " pending@example.com "))
	require.Equal(t, "pending@example.com", f.mail.last().to)

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	require.ErrorIs(t, f.svc.Activate(ctx, tokenFromLink(t, f.mail.last().link)), errs.ErrInvalidToken, "expired")
}
