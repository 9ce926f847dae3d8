// Package engine drives one editor's inline suggestions: it reduces host
// transactions through suggest.Transition, renders the ghost text, debounces
// fetches and applies commits.
package engine

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"ghosttab/logger"
	"ghosttab/suggest"
	"ghosttab/text"
)

// maxEventLoopRestarts bounds how often a panicking event loop is restarted.
const maxEventLoopRestarts = 3

type Engine struct {
	host    Host
	fetch   FetchFunc
	config  Config
	clock   Clock
	tracker Tracker

	suggestion suggest.Suggestion
	ghostShown atomic.Bool // read without the mutex by CanAccept
	debounce   *debouncer

	mu        sync.RWMutex
	eventChan chan Event

	mainCtx    context.Context
	mainCancel context.CancelFunc
	stopped    bool
	stopOnce   sync.Once
}

// NewEngine creates an engine for one host. clock may be nil for the
// system clock.
func NewEngine(host Host, fetch FetchFunc, config Config, clock Clock) (*Engine, error) {
	if host == nil {
		return nil, errors.New("engine: host is required")
	}
	if fetch == nil {
		return nil, errors.New("engine: fetch function is required")
	}
	if config.DelayBeforeFetching < 0 || config.FetchTimeout < 0 {
		return nil, errors.New("engine: durations must not be negative")
	}
	if clock == nil {
		clock = SystemClock
	}

	return &Engine{
		host:       host,
		fetch:      fetch,
		config:     config,
		clock:      clock,
		suggestion: suggest.Empty(),
		debounce:   newDebouncer(clock, config.DelayBeforeFetching),
		eventChan:  make(chan Event, 100),
	}, nil
}

// SetTracker installs a lifecycle observer. Call before Start.
func (e *Engine) SetTracker(t Tracker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracker = t
}

func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.stopped || e.mainCtx != nil {
		e.mu.Unlock()
		return
	}
	e.mainCtx, e.mainCancel = context.WithCancel(ctx)
	loopCtx := e.mainCtx
	e.mu.Unlock()

	go e.eventLoop(loopCtx, 0)
	logger.Info("engine started (%s mode)", e.config.Mode)
}

// Stop cancels in-flight fetches, the pending debounce and the event loop,
// and removes the ghost text.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		logger.Info("stopping engine...")
		e.stopped = true
		if e.mainCancel != nil {
			e.mainCancel()
		}
		e.debounce.Stop()
		e.setSuggestion(suggest.Empty(), false)
		e.clearGhost()
		logger.Info("engine stopped")
	})
}

// Done is closed when the engine stops. Nil before Start.
func (e *Engine) Done() <-chan struct{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.mainCtx == nil {
		return nil
	}
	return e.mainCtx.Done()
}

func (e *Engine) eventLoop(ctx context.Context, restarts int) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("engine: event loop panic: %v\n%s", r, debug.Stack())
			if restarts < maxEventLoopRestarts {
				go e.eventLoop(ctx, restarts+1)
				return
			}
			logger.Error("engine: event loop restarted %d times, giving up", restarts)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-e.eventChan:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("engine: handler panic for event %v: %v\n%s", event.Type, r, debug.Stack())
					}
				}()
				e.handleEvent(event)
			}()
		}
	}
}

func (e *Engine) handleEvent(event Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return
	}

	logger.Debug("engine: handle event %v", event.Type)

	handler, ok := eventHandlers[event.Type]
	if !ok {
		logger.Warn("engine: unknown event %q", event.Type)
		return
	}
	handler(e, event)
}

// Post queues an event for the loop. Blocks while the queue is full.
func (e *Engine) Post(event Event) error {
	e.mu.RLock()
	stopped := e.stopped
	ctx := e.mainCtx
	e.mu.RUnlock()

	if stopped {
		return ErrStopped
	}
	var done <-chan struct{}
	if ctx != nil {
		done = ctx.Done()
	}
	select {
	case e.eventChan <- event:
		return nil
	case <-done:
		return ErrStopped
	}
}

// HandleEvent posts a host notification by name. Unknown names are
// ignored.
func (e *Engine) HandleEvent(name string) error {
	eventType := EventTypeFromString(name)
	if eventType == "" {
		logger.Debug("engine: ignoring host event %q", name)
		return nil
	}
	return e.Post(Event{Type: eventType})
}

// HandleTransaction reduces a host-reported transaction synchronously.
func (e *Engine) HandleTransaction(tr text.Transaction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.handleTransaction(tr)
}

// Accept syncs the host and commits the whole remainder. Returns false when
// there was nothing to commit, so the host can run the key's default
// action.
func (e *Engine) Accept() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return false
	}
	e.doSync(Event{Type: EventAccept})
	return e.commit(suggest.BuildCommitEdit)
}

// AcceptWord syncs the host and commits the remainder up to the next word
// boundary.
func (e *Engine) AcceptWord() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return false
	}
	e.doSync(Event{Type: EventAcceptWord})
	return e.commit(suggest.BuildPartialCommitEdit)
}

// Trigger fetches immediately for the current host state.
func (e *Engine) Trigger() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.trigger()
}

// Cancel drops the pending debounce and the current suggestion. Returns
// whether a suggestion was active.
func (e *Engine) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return false
	}
	return e.cancel()
}

// Suggestion returns the current state.
func (e *Engine) Suggestion() suggest.Suggestion {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.suggestion
}

// CanAccept reports whether ghost text is on screen, so an accept key
// would commit something. It does not take the engine lock: hosts call it
// from inside a blocking editor request while the loop may be waiting on
// that editor.
func (e *Engine) CanAccept() bool {
	return e.ghostShown.Load()
}

func (e *Engine) doSync(_ Event) {
	tr, err := e.host.Sync()
	if err != nil {
		logger.Error("engine: failed to sync host: %v", err)
		return
	}
	e.handleTransaction(tr)
}

func (e *Engine) handleTransaction(tr text.Transaction) {
	e.reduce(suggest.UpdateFromTransaction(tr), false)
	if tr.DocChanged() {
		e.scheduleFetch()
	}
}

// commit applies the edit built from the current suggestion. A suggestion
// ended by a commit counts as accepted.
func (e *Engine) commit(build func(suggest.Suggestion, *text.Document) *suggest.Edit) bool {
	st := e.host.State()
	edit := build(e.suggestion, st.Doc)
	if edit == nil {
		return false
	}

	tr, err := e.host.Apply(edit)
	if err != nil {
		logger.Error("engine: failed to apply commit: %v", err)
		return false
	}

	e.reduce(suggest.UpdateFromTransaction(tr, edit.Effects...), true)
	if tr.DocChanged() {
		e.scheduleFetch()
	}
	return true
}

func (e *Engine) cancel() bool {
	e.debounce.Stop()
	wasActive := e.suggestion.Active()
	st := e.host.State()
	e.reduce(suggest.Update{
		Doc:     st.Doc,
		Head:    st.Head,
		Effects: []suggest.Effect{suggest.Clear{}},
	}, false)
	return wasActive
}

// reduce runs the state machine and brings the ghost text in line with the
// result. accepted marks a commit for the tracker.
func (e *Engine) reduce(upd suggest.Update, accepted bool) {
	prev := e.suggestion
	next := suggest.Transition(prev, upd)
	if prev != next {
		logger.Debug("engine: %v -> %v", prev, next)
	}
	e.setSuggestion(next, accepted)
	e.render(upd.Doc)
}

func (e *Engine) setSuggestion(next suggest.Suggestion, accepted bool) {
	prev := e.suggestion
	e.suggestion = next
	if prev == next || e.tracker == nil {
		return
	}
	if prev.Active() {
		if accepted {
			e.tracker.Accepted(prev)
		} else {
			e.tracker.Disposed(prev)
		}
	}
	if next.Active() {
		e.tracker.Shown(next)
	}
}

func (e *Engine) render(doc *text.Document) {
	dec := suggest.Render(e.suggestion, doc)
	if dec == nil {
		e.clearGhost()
		return
	}
	if err := e.host.ShowGhost(dec); err != nil {
		logger.Error("engine: failed to show ghost text: %v", err)
		return
	}
	e.ghostShown.Store(true)
}

func (e *Engine) clearGhost() {
	if !e.ghostShown.Load() {
		return
	}
	if err := e.host.ClearGhost(); err != nil {
		logger.Error("engine: failed to clear ghost text: %v", err)
	}
	e.ghostShown.Store(false)
}
