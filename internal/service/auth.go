// Package service contains application services for authentication and user management.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/user-admin/internal/crypto"
	"github.com/and161185/user-admin/internal/errs"
	"github.com/and161185/user-admin/internal/limiter"
	"github.com/and161185/user-admin/internal/model"
	"github.com/and161185/user-admin/internal/repository"
)

// AuthService defines account lifecycle and session operations.
type AuthService interface {
	// Register creates an inactive account and mails an activation link.
	Register(ctx context.Context, req model.RegisterRequest) (model.User, error)
	// Login applies rate limiting and issues an access token.
	Login(ctx context.Context, cr model.Credentials, ip string) (model.Tokens, model.User, error)
	// Logout revokes the token until it expires.
	Logout(ctx context.Context, token string) error
	// Refresh revokes token and issues a fresh one for the same user.
	Refresh(ctx context.Context, token string) (model.Tokens, error)
	// SendVerification (re)sends the activation link for an inactive account.
	SendVerification(ctx context.Context, email string) error
	// Activate consumes an activation token and enables the account.
	Activate(ctx context.Context, token string) error
	// Authenticate resolves a bearer token to a live, active user.
	Authenticate(ctx context.Context, token string) (model.User, error)
}

// AuthConfig holds token settings.
type AuthConfig struct {
	SignKey   []byte
	AccessTTL time.Duration
	VerifyTTL time.Duration
	// PublicURL is the externally reachable base URL used in activation links.
	PublicURL string
}

type AuthServiceImpl struct {
	users  repository.UserRepository
	tokens repository.TokenRepository
	lim    limiter.Limiter
	mail   Mailer
	cfg    AuthConfig
	log    *zap.Logger
	now    func() time.Time
}

var _ AuthService = (*AuthServiceImpl)(nil)

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, tokens repository.TokenRepository, lim limiter.Limiter,
	mail Mailer, cfg AuthConfig, log *zap.Logger) *AuthServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.VerifyTTL <= 0 {
		cfg.VerifyTTL = 24 * time.Hour
	}
	return &AuthServiceImpl{users: users, tokens: tokens, lim: lim, mail: mail, cfg: cfg, log: log, now: time.Now}
}

// Register creates a new inactive user with the default role.
func (s *AuthServiceImpl) Register(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	if err := req.Validate(); err != nil {
		return model.User{}, errs.Validation(err)
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return model.User{}, err
	}
	hash, err := pkgcrypto.HashPassword(req.Password)
	if err != nil {
		return model.User{}, err
	}
	u := &model.User{
		ID:           uid,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
		Phone:        req.Phone,
		Roles:        []string{model.RoleUser},
	}
	if err := s.users.Create(ctx, u); err != nil {
		return model.User{}, err
	}
	// the account exists even if the mail cannot be sent; send-email retries
	if err := s.sendActivation(ctx, *u); err != nil {
		s.log.Warn("activation mail not sent", zap.String("user", u.ID.String()), zap.Error(err))
	}
	return *u, nil
}

// Login authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) Login(ctx context.Context, cr model.Credentials, ip string) (model.Tokens, model.User, error) {
	if err := cr.Validate(); err != nil {
		return model.Tokens{}, model.User{}, errs.Validation(err)
	}
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, cr.Email, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, cr.Email)
	ok := false
	if err == nil {
		ok, err = pkgcrypto.VerifyPassword(cr.Password, u.PasswordHash)
		if err != nil {
			s.log.Error("stored password hash unusable", zap.String("user", u.ID.String()), zap.Error(err))
		}
	}
	if !ok {
		if blocked, _, ferr := s.lim.Failure(ctx, cr.Email, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.User{}, errs.ErrRateLimited
		}
		// a missing account and a wrong password look the same
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}
	if u.Deleted || !u.Active {
		return model.Tokens{}, model.User{}, errs.ErrInactive
	}

	_ = s.lim.Success(ctx, cr.Email, ipHash)
	now := s.now()
	if err := s.users.TouchLogin(ctx, u.ID, now); err != nil {
		s.log.Warn("last login not recorded", zap.Error(err))
	} else {
		u.LastLogin = &now
	}

	tok, err := s.issueAccessToken(u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tok, *u, nil
}

// Logout revokes the token's jti.
func (s *AuthServiceImpl) Logout(ctx context.Context, token string) error {
	claims, jti, err := s.verify(token)
	if err != nil {
		return err
	}
	return s.tokens.Revoke(ctx, jti, claims.ExpiresAt.Time)
}

// Refresh rotates a still valid token.
func (s *AuthServiceImpl) Refresh(ctx context.Context, token string) (model.Tokens, error) {
	u, err := s.Authenticate(ctx, token)
	if err != nil {
		return model.Tokens{}, err
	}
	if err := s.Logout(ctx, token); err != nil {
		return model.Tokens{}, err
	}
	return s.issueAccessToken(u.ID)
}

// SendVerification mails a new activation link.
func (s *AuthServiceImpl) SendVerification(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if u.Active {
		return fmt.Errorf("%w: account already active", errs.ErrConflict)
	}
	return s.sendActivation(ctx, *u)
}

// Activate enables the account the token was issued for.
func (s *AuthServiceImpl) Activate(ctx context.Context, token string) error {
	tok, err := uuid.FromString(strings.TrimSpace(token))
	if err != nil {
		return errs.ErrInvalidToken
	}
	vt, err := s.tokens.ConsumeVerification(ctx, tok, s.now())
	if err != nil {
		return err
	}
	u, err := s.users.GetByID(ctx, vt.UserID)
	if err != nil {
		return err
	}
	u.Active = true
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}
	s.log.Info("account activated", zap.String("user", u.ID.String()))
	return nil
}

// Authenticate verifies the token and loads its owner.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, token string) (model.User, error) {
	claims, jti, err := s.verify(token)
	if err != nil {
		return model.User{}, err
	}
	revoked, err := s.tokens.IsRevoked(ctx, jti)
	if err != nil {
		return model.User{}, err
	}
	if revoked {
		return model.User{}, fmt.Errorf("%w: token revoked", errs.ErrUnauthorized)
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: bad subject", errs.ErrUnauthorized)
	}
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return model.User{}, fmt.Errorf("%w: unknown user", errs.ErrUnauthorized)
	}
	if err != nil {
		return model.User{}, err
	}
	if u.Deleted || !u.Active {
		return model.User{}, fmt.Errorf("%w: account locked", errs.ErrUnauthorized)
	}
	return *u, nil
}

func (s *AuthServiceImpl) sendActivation(ctx context.Context, u model.User) error {
	tok, err := uuid.NewV4()
	if err != nil {
		return err
	}
	vt := model.VerificationToken{Token: tok, UserID: u.ID, ExpiresAt: s.now().Add(s.cfg.VerifyTTL)}
	if err := s.tokens.CreateVerification(ctx, vt); err != nil {
		return err
	}
	link := strings.TrimRight(s.cfg.PublicURL, "/") + "/user/active?" + url.Values{"token": {tok.String()}}.Encode()
	return s.mail.SendActivation(ctx, u.Email, link)
}

// issueAccessToken creates a signed HS256 JWT with a fresh jti.
func (s *AuthServiceImpl) issueAccessToken(userID uuid.UUID) (model.Tokens, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return model.Tokens{}, err
	}
	now := s.now()
	exp := now.Add(s.cfg.AccessTTL)
	claims := jwt.RegisteredClaims{
		ID:        jti.String(),
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.SignKey)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, TokenID: jti, ExpiresAt: exp}, nil
}

// verify checks signature, method and expiry (30s leeway) and returns the claims.
func (s *AuthServiceImpl) verify(token string) (*jwt.RegisteredClaims, uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) { return s.cfg.SignKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}
	jti, err := uuid.FromString(claims.ID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%w: missing jti", errs.ErrUnauthorized)
	}
	return &claims, jti, nil
}
