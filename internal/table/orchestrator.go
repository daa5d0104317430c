package table

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/and161185/user-admin/internal/errs"
	"github.com/and161185/user-admin/internal/model"
)

// Epoch identifies one issued fetch. Only the latest issued epoch may publish.
type Epoch uint64

// Lister is the read side of the Remote User Directory.
type Lister interface {
	List(ctx context.Context, q model.ListQuery) (model.Page, error)
}

// Notifier shows non-fatal feedback to the user.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Result reports what a refresh did.
type Result int

const (
	ResultApplied Result = iota
	// ResultStale means a newer fetch was issued; the response was discarded.
	ResultStale
	// ResultSuppressed means the AuthLatch is set; no request was made.
	ResultSuppressed
	// ResultFailed means a transient failure was reported; the view is unchanged.
	ResultFailed
	// ResultAuthFault means the request hit an authentication fault.
	ResultAuthFault
)

func (r Result) String() string {
	switch r {
	case ResultApplied:
		return "applied"
	case ResultStale:
		return "stale"
	case ResultSuppressed:
		return "suppressed"
	case ResultFailed:
		return "failed"
	case ResultAuthFault:
		return "auth_fault"
	}
	return "unknown"
}

// Orchestrator resolves queries into directory requests and publishes the resulting view.
type Orchestrator struct {
	dir     Lister
	latch   *AuthLatch
	session SessionInvalidator
	notify  Notifier
	log     *zap.Logger
	lang    language.Tag
	now     func() time.Time

	mu       sync.Mutex
	latest   Epoch
	cancel   context.CancelFunc
	inflight int
	view     View

	emitMu sync.Mutex
	subs   []func(View)
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLanguage sets the collation language for string sorting.
func WithLanguage(tag language.Tag) OrchestratorOption {
	return func(o *Orchestrator) { o.lang = tag }
}

// WithClock overrides the publish timestamp source.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator constructs an Orchestrator. latch is shared with the Coordinator.
func NewOrchestrator(dir Lister, latch *AuthLatch, session SessionInvalidator, notify Notifier, log *zap.Logger, opts ...OrchestratorOption) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	o := &Orchestrator{
		dir:     dir,
		latch:   latch,
		session: session,
		notify:  notify,
		log:     log,
		lang:    language.Und,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// View returns the current published snapshot.
func (o *Orchestrator) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.view.clone()
}

// Latest returns the most recently issued epoch.
func (o *Orchestrator) Latest() Epoch {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.latest
}

// Subscribe registers fn to receive every published snapshot.
func (o *Orchestrator) Subscribe(fn func(View)) {
	o.emitMu.Lock()
	o.subs = append(o.subs, fn)
	o.emitMu.Unlock()
}

// Refresh issues q and blocks until its response is reconciled.
func (o *Orchestrator) Refresh(ctx context.Context, q Query) Result {
	return o.Issue(ctx, q)()
}

// Issue mints the epoch for q now and returns the call that performs and reconciles the
// fetch. Callers that need issue order to follow intent order call Issue synchronously
// and run the returned func on another goroutine.
func (o *Orchestrator) Issue(ctx context.Context, q Query) func() Result {
	if o.latch.Tripped() {
		return func() Result { return ResultSuppressed }
	}
	q = q.Clone()

	o.mu.Lock()
	o.latest++
	e := o.latest
	if o.cancel != nil {
		// superseded; its response would be discarded anyway
		o.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.inflight++
	o.view.Loading = true
	o.mu.Unlock()
	o.emit()

	return func() Result {
		defer o.settle(e, cancel)
		return o.fetch(ctx, e, q)
	}
}

func (o *Orchestrator) fetch(ctx context.Context, e Epoch, q Query) Result {
	page, err := o.dir.List(ctx, q.ListQuery())
	if err != nil {
		return o.fail(e, err)
	}
	// the result set shrank under the requested page; show the last page instead
	if last := LastPage(page.TotalElements, q.Size); len(page.Content) == 0 && q.Page > last {
		o.log.Debug("page past the end, refetching last page",
			zap.Int("page", q.Page), zap.Int("last", last), zap.Int("total", page.TotalElements))
		q.Page = last
		if page, err = o.dir.List(ctx, q.ListQuery()); err != nil {
			return o.fail(e, err)
		}
	}

	rows := Rows(page.Content)
	next := View{
		Epoch:     e,
		Query:     q,
		Rows:      rows,
		Visible:   Project(rows, q, o.lang),
		Stats:     Compute(rows),
		Total:     page.TotalElements,
		Ready:     true,
		UpdatedAt: o.now(),
	}

	o.mu.Lock()
	if e != o.latest {
		o.mu.Unlock()
		o.log.Debug("discarding stale response", zap.Uint64("epoch", uint64(e)))
		return ResultStale
	}
	next.Loading = o.inflight > 0
	o.view = next
	o.mu.Unlock()

	o.log.Debug("view published",
		zap.Uint64("epoch", uint64(e)),
		zap.Int("rows", len(rows)),
		zap.Int("total", page.TotalElements),
	)
	return ResultApplied
}

func (o *Orchestrator) fail(e Epoch, err error) Result {
	f := errs.Classify(err)
	if f.Kind == errs.KindAuth {
		o.latch.fault(o.session, f.Message, o.log)
		return ResultAuthFault
	}

	o.mu.Lock()
	stale := e != o.latest
	o.mu.Unlock()
	if stale {
		o.log.Debug("discarding stale failure", zap.Uint64("epoch", uint64(e)), zap.Error(err))
		return ResultStale
	}

	o.log.Warn("list users failed", zap.Stringer("kind", f.Kind), zap.Error(err))
	if o.notify != nil {
		o.notify.Error("Failed to load users: " + f.Message)
	}
	return ResultFailed
}

// settle runs on every outcome and clears the loading indicator.
func (o *Orchestrator) settle(e Epoch, cancel context.CancelFunc) {
	cancel()
	o.mu.Lock()
	o.inflight--
	o.view.Loading = o.inflight > 0
	if e == o.latest {
		o.cancel = nil
	}
	o.mu.Unlock()
	o.emit()
}

func (o *Orchestrator) emit() {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()
	if len(o.subs) == 0 {
		return
	}
	snap := o.View()
	for _, fn := range o.subs {
		fn(snap)
	}
}
