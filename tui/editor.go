// Package tui is a small terminal editor hosting the suggestion engine.
package tui

import (
	"sync"

	"ghosttab/engine"
	"ghosttab/suggest"
	"ghosttab/text"
)

var _ engine.Host = (*Editor)(nil)

// Editor is an in-memory engine.Host. Edits made through its methods are
// returned as transactions for the engine; ghost text is kept for the view.
type Editor struct {
	mu       sync.Mutex
	state    text.State
	ghost    *suggest.Decoration
	onChange func()
}

func NewEditor(content string) *Editor {
	return &Editor{state: text.NewState(content, len(content))}
}

// OnChange sets a callback run after the ghost text changes. It may be
// called with the engine lock held and must not block.
func (e *Editor) OnChange(f func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = f
}

func (e *Editor) State() text.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Sync reports no change: every edit is handed to the engine when made.
func (e *Editor) Sync() (text.Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.MoveTo(e.state.Head), nil
}

func (e *Editor) Apply(edit *suggest.Edit) (text.Transaction, error) {
	head := edit.Head
	return e.apply(edit.Changes, &head)
}

func (e *Editor) ShowGhost(dec *suggest.Decoration) error {
	e.setGhost(dec)
	return nil
}

func (e *Editor) ClearGhost() error {
	e.setGhost(nil)
	return nil
}

// Ghost returns the decoration on screen, nil when none.
func (e *Editor) Ghost() *suggest.Decoration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ghost
}

func (e *Editor) setGhost(dec *suggest.Decoration) {
	e.mu.Lock()
	e.ghost = dec
	notify := e.onChange
	e.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// Editing commands. Each returns the transaction it performed.

func (e *Editor) Insert(s string) (text.Transaction, error) {
	head := e.State().Head
	return e.apply([]text.Change{{From: head, To: head, Insert: s}}, nil)
}

// Backspace deletes the byte sequence of the rune left of the cursor.
func (e *Editor) Backspace() (text.Transaction, error) {
	st := e.State()
	if st.Head == 0 {
		return st.MoveTo(0), nil
	}
	from := prevRuneStart(st.Doc.String(), st.Head)
	return e.apply([]text.Change{{From: from, To: st.Head}}, nil)
}

func (e *Editor) Delete() (text.Transaction, error) {
	st := e.State()
	if st.Head >= st.Doc.Len() {
		return st.MoveTo(st.Head), nil
	}
	to := nextRuneEnd(st.Doc.String(), st.Head)
	return e.apply([]text.Change{{From: st.Head, To: to}}, nil)
}

func (e *Editor) Left() text.Transaction {
	return e.move(func(st text.State) int { return prevRuneStart(st.Doc.String(), st.Head) })
}

func (e *Editor) Right() text.Transaction {
	return e.move(func(st text.State) int { return nextRuneEnd(st.Doc.String(), st.Head) })
}

func (e *Editor) Home() text.Transaction {
	return e.move(func(st text.State) int { return st.HeadLine().From })
}

func (e *Editor) End() text.Transaction {
	return e.move(func(st text.State) int { return st.HeadLine().To })
}

// Up and Down keep the byte column, clamped to the target line.
func (e *Editor) Up() text.Transaction {
	return e.move(func(st text.State) int {
		row, col := st.Doc.Position(st.Head)
		if row == 1 {
			return st.Head
		}
		return st.Doc.Offset(row-1, col)
	})
}

func (e *Editor) Down() text.Transaction {
	return e.move(func(st text.State) int {
		row, col := st.Doc.Position(st.Head)
		if row == st.Doc.Lines() {
			return st.Head
		}
		return st.Doc.Offset(row+1, col)
	})
}

func (e *Editor) move(target func(text.State) int) text.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	tr := e.state.MoveTo(target(e.state))
	e.state = tr.State()
	return tr
}

func (e *Editor) apply(changes []text.Change, head *int) (text.Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tr, err := e.state.Apply(changes, head)
	if err != nil {
		return text.Transaction{}, err
	}
	e.state = tr.State()
	return tr, nil
}

func prevRuneStart(s string, offset int) int {
	offset--
	for offset > 0 && !isRuneStart(s[offset]) {
		offset--
	}
	return max(offset, 0)
}

func nextRuneEnd(s string, offset int) int {
	offset++
	for offset < len(s) && !isRuneStart(s[offset]) {
		offset++
	}
	return min(offset, len(s))
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
