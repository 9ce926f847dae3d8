package engine

import (
	"context"
	"sync"
	"time"

	"ghosttab/suggest"
	"ghosttab/text"
)

// --- Mock implementations ---

// mockHost implements Host over an in-memory state
type mockHost struct {
	mu      sync.Mutex
	state   text.State
	pending *text.Transaction

	// Track method calls
	syncCalls   int
	applyCalls  int
	applyErr    error
	panicOnSync bool
	ghosts      []*suggest.Decoration
	clearCalls  int
}

func newMockHost(doc string, head int) *mockHost {
	return &mockHost{state: text.NewState(doc, head)}
}

// edit simulates the user typing: it updates the state and leaves the
// transaction for the next Sync.
func (h *mockHost) edit(changes ...text.Change) text.Transaction {
	h.mu.Lock()
	defer h.mu.Unlock()
	tr, err := h.state.Apply(changes, nil)
	if err != nil {
		panic(err)
	}
	h.state = tr.State()
	h.pending = &tr
	return tr
}

// typeText inserts s at the cursor.
func (h *mockHost) typeText(s string) text.Transaction {
	head := h.State().Head
	return h.edit(text.Change{From: head, To: head, Insert: s})
}

func (h *mockHost) State() text.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *mockHost) Sync() (text.Transaction, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.syncCalls++
	if h.panicOnSync {
		panic("sync failed")
	}
	if h.pending != nil {
		tr := *h.pending
		h.pending = nil
		return tr, nil
	}
	return h.state.MoveTo(h.state.Head), nil
}

func (h *mockHost) Apply(edit *suggest.Edit) (text.Transaction, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.applyCalls++
	if h.applyErr != nil {
		return text.Transaction{}, h.applyErr
	}
	head := edit.Head
	tr, err := h.state.Apply(edit.Changes, &head)
	if err != nil {
		return text.Transaction{}, err
	}
	h.state = tr.State()
	return tr, nil
}

func (h *mockHost) ShowGhost(dec *suggest.Decoration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ghosts = append(h.ghosts, dec)
	return nil
}

func (h *mockHost) ClearGhost() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clearCalls++
	return nil
}

func (h *mockHost) lastGhost() *suggest.Decoration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.ghosts) == 0 {
		return nil
	}
	return h.ghosts[len(h.ghosts)-1]
}

func (h *mockHost) content() string {
	return h.State().Doc.String()
}

// mockFetcher records calls and returns a canned answer
type mockFetcher struct {
	mu     sync.Mutex
	calls  int
	states []text.State
	result string
	err    error
	panics bool
}

func (f *mockFetcher) Fetch(ctx context.Context, st text.State) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.states = append(f.states, st)
	if f.panics {
		panic("provider exploded")
	}
	return f.result, f.err
}

func (f *mockFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// mockTracker counts lifecycle callbacks
type mockTracker struct {
	mu       sync.Mutex
	shown    []suggest.Suggestion
	accepted []suggest.Suggestion
	disposed []suggest.Suggestion
}

func (m *mockTracker) Shown(s suggest.Suggestion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shown = append(m.shown, s)
}

func (m *mockTracker) Accepted(s suggest.Suggestion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepted = append(m.accepted, s)
}

func (m *mockTracker) Disposed(s suggest.Suggestion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disposed = append(m.disposed, s)
}

// mockClock implements Clock for testing
type mockClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*mockTimer
}

func newMockClock() *mockClock {
	return &mockClock{
		now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (c *mockClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &mockTimer{
		armedAt:  c.now,
		fireTime: c.now.Add(d),
		f:        f,
	}
	c.timers = append(c.timers, t)
	return t
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves time forward and fires due timers outside the lock.
func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var toFire []*mockTimer
	for _, t := range c.timers {
		if !t.isStopped() && !t.fireTime.After(c.now) {
			toFire = append(toFire, t)
		}
	}
	c.mu.Unlock()

	for _, t := range toFire {
		t.fire()
	}
}

func (c *mockClock) fired() []*mockTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*mockTimer
	for _, t := range c.timers {
		if t.didFire() {
			out = append(out, t)
		}
	}
	return out
}

type mockTimer struct {
	armedAt  time.Time
	fireTime time.Time
	f        func()
	stopped  bool
	fired    bool
	mu       sync.Mutex
}

func (t *mockTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func (t *mockTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *mockTimer) didFire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

func (t *mockTimer) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.fired = true
	f := t.f
	t.mu.Unlock()
	if f != nil {
		f()
	}
}
