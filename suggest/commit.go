package suggest

import (
	"strings"

	"ghosttab/text"
)

// Edit is a host transaction request: changes against the current document,
// the cursor after them, and effects to feed back into Transition with the
// resulting transaction.
type Edit struct {
	Changes []text.Change
	Head    int
	Effects []Effect
}

// BuildCommitEdit inserts the untyped remainder of s at the end of what the
// user typed and moves the cursor after it. The edit carries Clear so the
// suggestion is dropped in the same step. Returns nil when nothing can be
// committed, in which case the host should run the key's default action.
func BuildCommitEdit(s Suggestion, doc *text.Document) *Edit {
	if !s.active || doc == nil {
		return nil
	}
	pos, overlap, ok := insertionPoint(s, doc)
	if !ok {
		return nil
	}
	return &Edit{
		Changes: []text.Change{{From: pos, To: pos, Insert: overlap.LeftToType}},
		Head:    pos + len(overlap.LeftToType),
		Effects: []Effect{Clear{}},
	}
}

// BuildPartialCommitEdit inserts the remainder up to the next word boundary.
// While part of the suggestion is left on the same line, no Clear is
// attached: the inserted text matches the suggestion so Transition keeps it
// active. Committing a line break moves the cursor off the anchor line,
// which ends the suggestion.
func BuildPartialCommitEdit(s Suggestion, doc *text.Document) *Edit {
	if !s.active || doc == nil {
		return nil
	}
	pos, overlap, ok := insertionPoint(s, doc)
	if !ok {
		return nil
	}

	n := text.FindNextWordBoundary(overlap.LeftToType)
	if n <= 0 {
		return nil
	}
	chunk := overlap.LeftToType[:n]

	edit := &Edit{
		Changes: []text.Change{{From: pos, To: pos, Insert: chunk}},
		Head:    pos + len(chunk),
	}
	if n == len(overlap.LeftToType) || strings.Contains(chunk, "\n") {
		edit.Effects = []Effect{Clear{}}
	}
	return edit
}
