package table

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Table holds the current Query and turns user intents into refreshes. Every committed
// change issues exactly one fetch; epochs are minted in commit order.
type Table struct {
	orch *Orchestrator
	ctx  context.Context
	log  *zap.Logger
	wait time.Duration

	mu      sync.Mutex
	q       Query
	epoch   Epoch // last epoch this table issued
	staged  map[Column]string
	pending map[Column]*Debouncer
	closed  bool

	wg sync.WaitGroup
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithDebounce sets the quiet period for staged searches.
func WithDebounce(d time.Duration) TableOption {
	return func(t *Table) { t.wait = d }
}

// WithQuery sets the initial query instead of DefaultQuery.
func WithQuery(q Query) TableOption {
	return func(t *Table) { t.q = q.Clone() }
}

// NewTable constructs a Table. ctx bounds every fetch it issues.
func NewTable(ctx context.Context, orch *Orchestrator, log *zap.Logger, opts ...TableOption) *Table {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Table{
		orch:    orch,
		ctx:     ctx,
		log:     log,
		wait:    DefaultDebounce,
		q:       DefaultQuery(),
		staged:  map[Column]string{},
		pending: map[Column]*Debouncer{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Query returns the current query.
func (t *Table) Query() Query {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.q.Clone()
}

// View returns the current published snapshot.
func (t *Table) View() View { return t.orch.View() }

// Refresh re-fetches with the current query (manual refresh, post-mutation refetch).
func (t *Table) Refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.issueLocked()
}

// Wait blocks until every issued fetch has been reconciled.
func (t *Table) Wait() { t.wg.Wait() }

// Close drops pending debounced commits and waits for in-flight fetches. Intents after
// Close are ignored.
func (t *Table) Close() {
	t.mu.Lock()
	t.closed = true
	for _, d := range t.pending {
		d.Cancel()
	}
	t.mu.Unlock()
	t.wg.Wait()
}

// StageSearch records a keystroke in col's search box. The term is committed once the
// quiet period passes without further keystrokes on that column.
func (t *Table) StageSearch(col Column, term string) error {
	if _, err := t.Query().WithSearch(col, term); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.staged[col] = term
	d, ok := t.pending[col]
	if !ok {
		d = NewDebouncer(t.wait)
		t.pending[col] = d
	}
	d.Trigger(func() { _ = t.ConfirmSearch(col, t.Staged(col)) })
	return nil
}

// Staged returns the uncommitted text of col's search box.
func (t *Table) Staged(col Column) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.staged[col]
}

// ConfirmSearch commits term on col immediately (submit), superseding a pending debounce.
func (t *Table) ConfirmSearch(col Column, term string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	next, err := t.q.WithSearch(col, term)
	if err != nil {
		return err
	}
	if d, ok := t.pending[col]; ok {
		d.Cancel()
	}
	t.staged[col] = term
	t.commitLocked(next)
	return nil
}

// ResetSearch clears both the staged and the committed term of col.
func (t *Table) ResetSearch(col Column) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d, ok := t.pending[col]; ok {
		d.Cancel()
	}
	delete(t.staged, col)
	t.commitLocked(t.q.WithoutSearch(col))
}

// SetFilter commits the accepted values for col.
func (t *Table) SetFilter(col Column, values []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	next, err := t.q.WithFilter(col, values)
	if err != nil {
		return err
	}
	t.commitLocked(next)
	return nil
}

// ClearFilters clears filters and search; sort is kept.
func (t *Table) ClearFilters() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropStagedLocked()
	t.commitLocked(t.q.WithoutFilters())
}

// ClearAll clears filters, search and sort.
func (t *Table) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropStagedLocked()
	t.commitLocked(t.q.Cleared())
}

// ToggleSort cycles col through asc → desc → none.
func (t *Table) ToggleSort(col Column) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	next, err := t.q.WithSortToggled(col)
	if err != nil {
		return err
	}
	t.commitLocked(next)
	return nil
}

// SetSort sets the sort directly.
func (t *Table) SetSort(col Column, dir SortDir) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	next, err := t.q.WithSort(col, dir)
	if err != nil {
		return err
	}
	t.commitLocked(next)
	return nil
}

// ChangePage moves to page with size, clamped against the last known total. A total
// published for a different search or filter set is not known for the current query.
func (t *Table) ChangePage(page, size int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := -1
	if v := t.orch.View(); v.Ready && v.Query.SameResults(t.q) {
		total = v.Total
	}
	next, err := t.q.WithPage(page, size, total)
	if err != nil {
		return err
	}
	t.commitLocked(next)
	return nil
}

func (t *Table) dropStagedLocked() {
	for _, d := range t.pending {
		d.Cancel()
	}
	clear(t.staged)
}

func (t *Table) commitLocked(next Query) {
	if t.closed {
		return
	}
	t.q = next
	t.log.Debug("query committed",
		zap.Int("page", next.Page),
		zap.Int("size", next.Size),
		zap.String("search", next.SearchTerm),
		zap.String("searchBy", string(next.SearchField)),
		zap.String("sort", string(next.SortColumn)),
		zap.Stringer("dir", next.SortDir),
	)
	t.issueLocked()
}

// issueLocked mints the epoch under t.mu so issue order equals commit order, then
// resolves the fetch off the caller's goroutine.
func (t *Table) issueLocked() {
	if t.closed {
		return
	}
	run := t.orch.Issue(t.ctx, t.q)
	t.epoch = t.orch.Latest()
	e := t.epoch
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if run() == ResultApplied {
			t.adopt(e)
		}
	}()
}

// adopt takes over the page the orchestrator settled on when it moved a request that
// ran past the end back to the last page.
func (t *Table) adopt(e Epoch) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := t.orch.View()
	if e != t.epoch || v.Epoch != e || v.Query.Page == t.q.Page {
		return
	}
	if v.Query.SameResults(t.q) && v.Query.Size == t.q.Size {
		t.q.Page = v.Query.Page
	}
}
