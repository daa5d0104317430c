package table

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// SessionInvalidator drops the current credential and tells the routing shell to go to login.
type SessionInvalidator interface {
	Invalidate(reason string) (cancel func() bool)
}

// AuthLatch is the one-shot AuthFault flag shared by the Orchestrator and the Coordinator.
type AuthLatch struct {
	tripped atomic.Bool

	mu     sync.Mutex
	cancel func() bool // stops the scheduled session drop
}

// Trip sets the latch and reports whether this call was the one that set it.
func (l *AuthLatch) Trip() bool { return l.tripped.CompareAndSwap(false, true) }

// Tripped reports whether calls are currently suppressed.
func (l *AuthLatch) Tripped() bool { return l.tripped.Load() }

// Reset re-enables calls once a new session is established. A session drop still
// waiting to be applied is stopped.
func (l *AuthLatch) Reset() {
	l.CancelInvalidation()
	l.tripped.Store(false)
}

// CancelInvalidation stops the session drop scheduled by the fault, if it has not been
// applied yet, and reports whether it stopped one.
func (l *AuthLatch) CancelInvalidation() bool {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()
	return cancel != nil && cancel()
}

// fault trips the latch and invalidates the session exactly once.
func (l *AuthLatch) fault(inv SessionInvalidator, reason string, log *zap.Logger) {
	if !l.Trip() {
		return
	}
	log.Warn("authentication fault, suppressing further calls", zap.String("reason", reason))
	if inv == nil {
		return
	}
	cancel := inv.Invalidate(reason)
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()
}
