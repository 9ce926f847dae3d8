// Package suggest holds the inline-suggestion state machine and the pure
// functions around it: overlap resolution, anchoring, rendering and commit.
//
// Nothing in this package keeps hidden state. The engine owns one
// Suggestion per editor and replaces it with Transition on every update.
package suggest

import (
	"fmt"

	"ghosttab/text"
)

// Suggestion is the active inline suggestion of one editor, or Empty.
// Text, AnchorOffset and AnchorLine are set together or not at all.
type Suggestion struct {
	text         string
	anchorOffset int
	anchorLine   int // 1-indexed
	active       bool
}

// Empty is the state with no suggestion.
func Empty() Suggestion { return Suggestion{} }

// NewSuggestion returns an active suggestion anchored at anchorOffset bytes
// into line anchorLine (1-indexed).
func NewSuggestion(s string, anchorOffset, anchorLine int) Suggestion {
	return Suggestion{
		text:         s,
		anchorOffset: anchorOffset,
		anchorLine:   anchorLine,
		active:       true,
	}
}

func (s Suggestion) Active() bool { return s.active }

func (s Suggestion) Text() string { return s.text }

func (s Suggestion) AnchorOffset() int { return s.anchorOffset }

// AnchorLine is the 1-indexed line the suggestion was computed for, or 0.
func (s Suggestion) AnchorLine() int { return s.anchorLine }

func (s Suggestion) String() string {
	if !s.active {
		return "Empty"
	}
	return fmt.Sprintf("Active(line=%d, offset=%d, text=%q)", s.anchorLine, s.anchorOffset, s.text)
}

// Effect is an explicit signal attached to an update.
// The set is closed: FetchResult and Clear.
type Effect interface {
	isEffect()
}

// FetchResult carries a fetched suggestion together with the document
// snapshot the fetch was computed against.
type FetchResult struct {
	Text     string
	Snapshot *text.Document
}

// Clear drops the current suggestion unconditionally.
type Clear struct{}

func (FetchResult) isEffect() {}
func (Clear) isEffect()       {}

// Update is what the state machine sees of one editor transaction: the
// resulting document, the cursor, whether the text changed and any effects.
type Update struct {
	Doc        *text.Document
	Head       int
	DocChanged bool
	Effects    []Effect
}

// UpdateFromTransaction converts an editor transaction into an Update.
func UpdateFromTransaction(tr text.Transaction, effects ...Effect) Update {
	return Update{
		Doc:        tr.Doc,
		Head:       tr.Head,
		DocChanged: tr.DocChanged(),
		Effects:    effects,
	}
}

// Transition computes the next suggestion state. Rules, first match wins:
//
//  1. a Clear effect empties the state
//  2. a FetchResult whose snapshot is the update's document replaces the
//     state, anchored on the cursor line
//  3. the cursor left the anchor line: empty
//  4. the document did not change: unchanged
//  5. the document changed: unchanged while the typed text still matches
//     the suggestion, empty otherwise
func Transition(prev Suggestion, upd Update) Suggestion {
	var fresh *FetchResult
	for _, eff := range upd.Effects {
		switch e := eff.(type) {
		case Clear:
			return Empty()
		case FetchResult:
			if e.Snapshot.Same(upd.Doc) {
				fresh = &e
			}
		}
	}

	if upd.Doc == nil {
		return Empty()
	}

	headLine := upd.Doc.LineAt(upd.Head)

	if fresh != nil {
		offset, ok := ComputeAnchorOffset(headLine.Text, fresh.Text)
		if !ok {
			return Empty()
		}
		return NewSuggestion(fresh.Text, offset, headLine.Number)
	}

	if prev.anchorLine != headLine.Number {
		return Empty()
	}

	if !upd.DocChanged {
		return prev
	}

	if !prev.active {
		return Empty()
	}

	if !ResolveOverlap(prev.text, prev.anchorOffset, headLine.Text).OK {
		return Empty()
	}
	return prev
}
