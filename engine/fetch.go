package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"ghosttab/logger"
	"ghosttab/suggest"
	"ghosttab/text"
)

// scheduleFetch re-arms the debounce after a document change. No-op in
// manual mode.
func (e *Engine) scheduleFetch() {
	if e.config.Mode != ModeAutomatic {
		return
	}
	e.debounce.Arm(func(gen uint64) {
		if err := e.Post(Event{Type: EventDebounceFired, Data: gen}); err != nil {
			logger.Debug("engine: dropping debounce: %v", err)
		}
	})
}

func (e *Engine) doDebounceFired(event Event) {
	gen, _ := event.Data.(uint64)
	if !e.debounce.Current(gen) {
		logger.Debug("engine: stale debounce %d", gen)
		return
	}
	// the snapshot is taken when the timer fires, not when it was armed
	e.startFetch(e.host.State())
}

func (e *Engine) trigger() {
	e.debounce.Stop()
	e.startFetch(e.host.State())
}

// startFetch runs the fetch function for st in a goroutine and posts the
// outcome. In-flight fetches are not cancelled by newer ones; the result is
// checked against the live document when it arrives.
func (e *Engine) startFetch(st text.State) {
	if e.mainCtx == nil {
		logger.Warn("engine: fetch requested before start")
		return
	}

	ctx := e.mainCtx
	cancel := context.CancelFunc(func() {})
	if e.config.FetchTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.config.FetchTimeout)
	}
	fetch := e.fetch

	go func() {
		defer cancel()
		defer logger.Trace("engine: fetch")()

		completion, err := runFetch(ctx, fetch, st)
		if err != nil {
			e.Post(Event{Type: EventFetchError, Data: err})
			return
		}
		e.Post(Event{Type: EventFetchReady, Data: fetchResult{text: completion, snapshot: st.Doc}})
	}()
}

// runFetch calls fetch, turning a panic into an error.
func runFetch(ctx context.Context, fetch FetchFunc, st text.State) (completion string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("engine: fetch panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("fetch panicked: %v", r)
		}
	}()
	return fetch(ctx, st)
}

func (e *Engine) doFetchReady(event Event) {
	res, ok := event.Data.(fetchResult)
	if !ok {
		return
	}
	if res.text == "" {
		logger.Debug("engine: empty suggestion")
	}

	st := e.host.State()
	e.reduce(suggest.Update{
		Doc:     st.Doc,
		Head:    st.Head,
		Effects: []suggest.Effect{suggest.FetchResult{Text: res.text, Snapshot: res.snapshot}},
	}, false)
}

func (e *Engine) doFetchError(event Event) {
	err, _ := event.Data.(error)
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		logger.Debug("engine: fetch canceled: %v", err)
		return
	}
	logger.Error("engine: fetch failed: %v", err)
	if e.config.OnFetchError != nil {
		e.config.OnFetchError(err)
	}
}
