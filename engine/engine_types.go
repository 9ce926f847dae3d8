package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ghosttab/suggest"
	"ghosttab/text"
)

// ErrStopped is returned when an event is posted to a stopped engine.
var ErrStopped = errors.New("engine stopped")

// Host is the editor side of one engine. Implemented by buffer.NvimHost and
// the terminal demo editor.
type Host interface {
	// State returns the document and cursor as last observed.
	State() text.State
	// Sync reads the editor and reports what changed since the previous
	// observation. A host that reports its own transactions directly may
	// return a selection-only transaction.
	Sync() (text.Transaction, error)
	// Apply performs edit as one editor transaction and returns it.
	Apply(edit *suggest.Edit) (text.Transaction, error)
	ShowGhost(dec *suggest.Decoration) error
	ClearGhost() error
}

// Tracker observes the suggestion lifecycle. Implemented by metrics.Tracker.
type Tracker interface {
	Shown(s suggest.Suggestion)
	Accepted(s suggest.Suggestion)
	Disposed(s suggest.Suggestion)
}

// FetchFunc computes a suggestion for an editor state. An empty string
// means there is nothing to suggest.
type FetchFunc func(ctx context.Context, st text.State) (string, error)

// Mode selects when fetches happen.
type Mode int

const (
	// ModeAutomatic fetches after every document change, debounced.
	ModeAutomatic Mode = iota
	// ModeManual fetches only on Trigger.
	ModeManual
)

func (m Mode) String() string {
	switch m {
	case ModeAutomatic:
		return "automatic"
	case ModeManual:
		return "manual"
	default:
		return "unknown"
	}
}

// ParseMode accepts "automatic"/"auto" and "manual".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "automatic", "auto":
		return ModeAutomatic, nil
	case "manual":
		return ModeManual, nil
	default:
		return ModeAutomatic, fmt.Errorf("unknown mode %q", s)
	}
}

// Keys are host key bindings, in the host's notation.
type Keys struct {
	Accept     string
	AcceptWord string
	Trigger    string
	Cancel     string
}

type Config struct {
	Mode                Mode
	DelayBeforeFetching time.Duration
	FetchTimeout        time.Duration // 0 = no timeout
	Keys                Keys

	// OnFetchError receives fetch failures other than cancellation. It runs
	// on the event loop and must not call back into the engine.
	OnFetchError func(error)
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Mode:                ModeAutomatic,
		DelayBeforeFetching: time.Second,
		FetchTimeout:        10 * time.Second,
		Keys: Keys{
			Accept:     "<Tab>",
			AcceptWord: "<C-Right>",
			Trigger:    "<C-Space>",
			Cancel:     "<C-e>",
		},
	}
}

// Clock abstracts timers so tests can drive time.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
func (realClock) Now() time.Time                            { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}
