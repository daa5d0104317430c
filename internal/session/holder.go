package session

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/and161185/user-admin/internal/model"
)

// DefaultTTL is assumed when a token carries no exp claim.
const DefaultTTL = 15 * time.Minute

// Event is delivered to subscribers when the session is invalidated.
type Event struct {
	Reason string
	At     time.Time
}

// Holder owns the console's credential and current-user snapshot.
type Holder struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
	delay time.Duration

	mu      sync.Mutex
	cred    Credential
	user    *model.CurrentUser
	subs    []func(Event)
	pending *time.Timer
}

// Option configures a Holder.
type Option func(*Holder)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(h *Holder) { h.now = now }
}

// WithDelay postpones the effect of Invalidate; the returned cancel func can still stop it.
func WithDelay(d time.Duration) Option {
	return func(h *Holder) { h.delay = d }
}

// NewHolder loads whatever the store has. A missing or unreadable session is not an error.
func NewHolder(store Store, log *zap.Logger, opts ...Option) *Holder {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Holder{store: store, log: log, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	if store == nil {
		return h
	}
	if c, err := store.LoadCredential(); err == nil {
		h.cred = c
	} else if !errors.Is(err, ErrNoSession) {
		log.Warn("session token unreadable", zap.Error(err))
	}
	if u, err := store.LoadUser(); err == nil {
		h.user = &u
	}
	return h
}

// Token returns the stored access token while it is valid.
func (h *Holder) Token() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.cred.Valid(h.now()) {
		return "", false
	}
	return h.cred.AccessToken, true
}

// Credential returns the stored credential, expired or not.
func (h *Holder) Credential() Credential {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cred
}

// Set stores a freshly issued token. Its expiry comes from the exp claim, read without
// verifying the signature.
func (h *Holder) Set(token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	c := Credential{AccessToken: token, ExpiresAt: ExpiryOf(token, h.now())}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending != nil {
		h.pending.Stop()
		h.pending = nil
	}
	h.cred = c
	if h.store != nil {
		if err := h.store.SaveCredential(c); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
	}
	h.log.Debug("session token stored", zap.Time("expires_at", c.ExpiresAt))
	return nil
}

// ExpiryOf reads exp from an unverified JWT; tokens without one get now+DefaultTTL.
func ExpiryOf(token string, now time.Time) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return now.Add(DefaultTTL)
}

// User returns the current-user snapshot, if any.
func (h *Holder) User() (model.CurrentUser, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.user == nil {
		return model.CurrentUser{}, false
	}
	return *h.user, true
}

// SetUser stores the current-user snapshot.
func (h *Holder) SetUser(u model.CurrentUser) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.user = &u
	if h.store == nil {
		return nil
	}
	return h.store.SaveUser(u)
}

// Remember stores the email to prefill the next login; empty forgets it.
func (h *Holder) Remember(email string) error {
	if h.store == nil {
		return nil
	}
	return h.store.SaveRememberedEmail(email)
}

// RememberedEmail returns the remembered login email.
func (h *Holder) RememberedEmail() string {
	if h.store == nil {
		return ""
	}
	email, err := h.store.LoadRememberedEmail()
	if err != nil {
		h.log.Debug("remembered email unreadable", zap.Error(err))
	}
	return email
}

// Clear drops the credential and the user snapshot, in memory and on disk.
func (h *Holder) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clearLocked()
}

func (h *Holder) clearLocked() error {
	h.cred = Credential{}
	h.user = nil
	if h.store == nil {
		return nil
	}
	return h.store.Clear()
}

// Subscribe registers fn for invalidation events.
func (h *Holder) Subscribe(fn func(Event)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = append(h.subs, fn)
}

// Invalidate schedules a session drop: the credential is cleared and subscribers are told
// to route to login. A second call while one is pending returns the same cancel func.
func (h *Holder) Invalidate(reason string) (cancel func() bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pending == nil {
		h.log.Info("session invalidated", zap.String("reason", reason), zap.Duration("delay", h.delay))
		h.pending = time.AfterFunc(h.delay, func() { h.fire(reason) })
	}
	t := h.pending
	return func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		stopped := t.Stop()
		if stopped && h.pending == t {
			h.pending = nil
		}
		return stopped
	}
}

func (h *Holder) fire(reason string) {
	h.mu.Lock()
	h.pending = nil
	if err := h.clearLocked(); err != nil {
		h.log.Warn("clear session", zap.Error(err))
	}
	subs := slices.Clone(h.subs)
	ev := Event{Reason: reason, At: h.now()}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}
