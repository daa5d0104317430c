package table

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/user-admin/internal/errs"
	"github.com/and161185/user-admin/internal/model"
)

var (
	// ErrCancelled is returned when the user declines the confirmation step.
	ErrCancelled = errors.New("cancelled")
	// ErrSuppressed is returned while the AuthLatch is set.
	ErrSuppressed = errors.New("suppressed after authentication failure")
	// ErrMutationPending is returned when another mutation for the same user is in flight.
	ErrMutationPending = errors.New("another operation on this user is pending")
)

// Mutator is the write side of the Remote User Directory.
type Mutator interface {
	Create(ctx context.Context, p model.UserPayload) (model.UserRecord, error)
	Update(ctx context.Context, id string, u model.UserUpdate) (model.UserRecord, error)
	SetActive(ctx context.Context, id string, active bool) (model.UserRecord, error)
	Delete(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id string, ch model.PasswordChange) error
}

// Confirmer asks the user to approve a destructive operation.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// Refresher re-fetches the table with its current query.
type Refresher interface {
	Refresh()
}

// Op is a row action.
type Op int

const (
	OpEdit Op = iota + 1
	OpDelete
	OpToggle
)

// Action is a row action message: an immutable row identity plus the intended operation.
type Action struct {
	Op     Op
	UserID string
	// Status is the row status at dispatch time; it decides lock vs unlock for OpToggle.
	Status Status
	// Update carries the edit for OpEdit.
	Update *model.UserUpdate
}

// Coordinator executes state-changing operations and refetches on success.
type Coordinator struct {
	dir     Mutator
	confirm Confirmer
	refresh Refresher
	latch   *AuthLatch
	session SessionInvalidator
	notify  Notifier
	log     *zap.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewCoordinator constructs a Coordinator. latch is shared with the Orchestrator.
func NewCoordinator(dir Mutator, confirm Confirmer, refresh Refresher, latch *AuthLatch, session SessionInvalidator, notify Notifier, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		dir:     dir,
		confirm: confirm,
		refresh: refresh,
		latch:   latch,
		session: session,
		notify:  notify,
		log:     log,
		pending: map[string]struct{}{},
	}
}

// Delete removes a user after confirmation.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	return c.run(ctx, id, fmt.Sprintf("Delete user %s?", id), "User deleted", func(ctx context.Context) error {
		return c.dir.Delete(ctx, id)
	})
}

// SetActive locks (false) or unlocks (true) a user after confirmation.
func (c *Coordinator) SetActive(ctx context.Context, id string, active bool) error {
	verb, done := "Lock", "User locked"
	if active {
		verb, done = "Unlock", "User unlocked"
	}
	return c.run(ctx, id, fmt.Sprintf("%s user %s?", verb, id), done, func(ctx context.Context) error {
		_, err := c.dir.SetActive(ctx, id, active)
		return err
	})
}

// Toggle flips a user given its displayed status: Locked and Inactive unlock, Active locks.
func (c *Coordinator) Toggle(ctx context.Context, id string, current Status) error {
	return c.SetActive(ctx, id, current != StatusActive)
}

// Create adds a user. The payload is validated before any call is made.
func (c *Coordinator) Create(ctx context.Context, p model.UserPayload) error {
	if err := p.Validate(); err != nil {
		return errs.Validation(err)
	}
	return c.run(ctx, "", "", "User created", func(ctx context.Context) error {
		_, err := c.dir.Create(ctx, p)
		return err
	})
}

// Update edits a user. The payload is validated before any call is made.
func (c *Coordinator) Update(ctx context.Context, id string, u model.UserUpdate) error {
	if err := u.Validate(); err != nil {
		return errs.Validation(err)
	}
	return c.run(ctx, id, "", "User updated", func(ctx context.Context) error {
		_, err := c.dir.Update(ctx, id, u)
		return err
	})
}

// UpdatePassword changes a user's password.
func (c *Coordinator) UpdatePassword(ctx context.Context, id string, ch model.PasswordChange) error {
	if err := ch.Validate(); err != nil {
		return errs.Validation(err)
	}
	return c.run(ctx, id, "", "Password updated", func(ctx context.Context) error {
		return c.dir.UpdatePassword(ctx, id, ch)
	})
}

// Dispatch handles a row action.
func (c *Coordinator) Dispatch(ctx context.Context, a Action) error {
	switch a.Op {
	case OpDelete:
		return c.Delete(ctx, a.UserID)
	case OpToggle:
		return c.Toggle(ctx, a.UserID, a.Status)
	case OpEdit:
		if a.Update == nil {
			return errs.Validation(errors.New("edit requires an update"))
		}
		return c.Update(ctx, a.UserID, *a.Update)
	}
	return fmt.Errorf("unknown op %d", a.Op)
}

// run serializes per user id (empty id is not serialized), confirms when prompt is set,
// performs call and reconciles the outcome.
func (c *Coordinator) run(ctx context.Context, id, prompt, success string, call func(context.Context) error) error {
	if c.latch.Tripped() {
		return ErrSuppressed
	}
	if id != "" {
		if !c.acquire(id) {
			return ErrMutationPending
		}
		defer c.release(id)
	}
	if prompt != "" && (c.confirm == nil || !c.confirm.Confirm(ctx, prompt)) {
		return ErrCancelled
	}
	if c.latch.Tripped() {
		return ErrSuppressed
	}

	if err := call(ctx); err != nil {
		f := errs.Classify(err)
		if f.Kind == errs.KindAuth {
			c.latch.fault(c.session, f.Message, c.log)
			return f
		}
		c.log.Warn("mutation failed", zap.String("user", id), zap.Stringer("kind", f.Kind), zap.Error(err))
		if c.notify != nil {
			c.notify.Error(f.Message)
		}
		return f
	}

	c.log.Info("mutation applied", zap.String("user", id), zap.String("result", success))
	if c.notify != nil {
		c.notify.Success(success)
	}
	if c.refresh != nil {
		c.refresh.Refresh()
	}
	return nil
}

func (c *Coordinator) acquire(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.pending[id]; busy {
		return false
	}
	c.pending[id] = struct{}{}
	return true
}

func (c *Coordinator) release(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}
