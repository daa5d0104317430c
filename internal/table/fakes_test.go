package table

import (
	"context"
	"fmt"
	"sync"

	"github.com/and161185/user-admin/internal/model"
)

type fakeLister struct {
	mu    sync.Mutex
	calls []model.ListQuery
	// respond builds the answer for a call; nil answers with page().
	respond func(ctx context.Context, q model.ListQuery) (model.Page, error)
}

var _ Lister = (*fakeLister)(nil)

func (f *fakeLister) List(ctx context.Context, q model.ListQuery) (model.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	respond := f.respond
	f.mu.Unlock()
	if respond == nil {
		return page(q.Limit, q.Limit*3), nil
	}
	return respond(ctx, q)
}

func (f *fakeLister) Calls() []model.ListQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ListQuery(nil), f.calls...)
}

// page builds n active records with ids "001".."00n" and the given server total.
func page(n, total int) model.Page {
	p := model.Page{TotalElements: total}
	for i := 1; i <= n; i++ {
		p.Content = append(p.Content, model.UserRecord{
			ID:        fmt.Sprintf("%03d", i),
			FullName:  fmt.Sprintf("User %d", i),
			Email:     fmt.Sprintf("user%d@example.com", i),
			RoleNames: []string{model.RoleUser},
			Active:    true,
		})
	}
	return p
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
	log    *eventLog
}

var _ Notifier = (*fakeNotifier)(nil)

func (n *fakeNotifier) Success(msg string) { n.add("success: " + msg) }
func (n *fakeNotifier) Error(msg string)   { n.add("error: " + msg) }

func (n *fakeNotifier) add(e string) {
	n.mu.Lock()
	n.events = append(n.events, e)
	n.mu.Unlock()
	if n.log != nil {
		n.log.add(e)
	}
}

func (n *fakeNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type fakeSession struct {
	mu      sync.Mutex
	reasons []string
	pending bool
}

var _ SessionInvalidator = (*fakeSession)(nil)

func (s *fakeSession) Invalidate(reason string) func() bool {
	s.mu.Lock()
	s.reasons = append(s.reasons, reason)
	s.pending = true
	s.mu.Unlock()
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		stopped := s.pending
		s.pending = false
		return stopped
	}
}

func (s *fakeSession) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *fakeSession) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reasons)
}

type fakeConfirmer struct {
	mu      sync.Mutex
	answer  bool
	prompts []string
}

var _ Confirmer = (*fakeConfirmer)(nil)

func (c *fakeConfirmer) Confirm(_ context.Context, prompt string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	return c.answer
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	log   *eventLog
}

var _ Refresher = (*fakeRefresher)(nil)

func (r *fakeRefresher) Refresh() {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.log != nil {
		r.log.add("refresh")
	}
}

type fakeMutator struct {
	mu      sync.Mutex
	calls   []string
	err     error
	actives map[string]bool
	// gate, when set, blocks every call until it is closed.
	gate    chan struct{}
	started chan struct{}
}

var _ Mutator = (*fakeMutator)(nil)

func (m *fakeMutator) record(call string) error {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	gate, started, err := m.gate, m.started, m.err
	m.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return err
}

func (m *fakeMutator) Create(_ context.Context, p model.UserPayload) (model.UserRecord, error) {
	return model.UserRecord{Email: p.Email}, m.record("create " + p.Email)
}

func (m *fakeMutator) Update(_ context.Context, id string, _ model.UserUpdate) (model.UserRecord, error) {
	return model.UserRecord{ID: id}, m.record("update " + id)
}

func (m *fakeMutator) SetActive(_ context.Context, id string, active bool) (model.UserRecord, error) {
	m.mu.Lock()
	if m.actives == nil {
		m.actives = map[string]bool{}
	}
	m.actives[id] = active
	m.mu.Unlock()
	return model.UserRecord{ID: id, Active: active}, m.record(fmt.Sprintf("active %s %t", id, active))
}

func (m *fakeMutator) Delete(_ context.Context, id string) error {
	return m.record("delete " + id)
}

func (m *fakeMutator) UpdatePassword(_ context.Context, id string, _ model.PasswordChange) error {
	return m.record("password " + id)
}

func (m *fakeMutator) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}
