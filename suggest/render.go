package suggest

import (
	"runtime/debug"
	"strings"

	"ghosttab/logger"
	"ghosttab/text"
)

// Decoration describes the ghost text overlay. It is not editor content:
// hosts draw it non-editable, de-emphasized and excluded from copy/paste.
type Decoration struct {
	Offset int      // absolute document offset the overlay is attached to
	Line   int      // 1-indexed line of Offset
	Column int      // 0-indexed byte column of Offset
	Text   string   // the part of the suggestion not typed yet
	Lines  []string // Text split on "\n": Lines[0] inline, the rest below
}

// Render derives the ghost text for s on doc. The overlap is resolved again
// here rather than trusted from the last transition. Any inconsistency,
// including a panic, yields nil.
func Render(s Suggestion, doc *text.Document) (dec *Decoration) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("suggest: render panic: %v\n%s", r, debug.Stack())
			dec = nil
		}
	}()

	if !s.active || doc == nil {
		return nil
	}

	pos, overlap, ok := insertionPoint(s, doc)
	if !ok {
		return nil
	}

	row, col := doc.Position(pos)
	return &Decoration{
		Offset: pos,
		Line:   row,
		Column: col,
		Text:   overlap.LeftToType,
		Lines:  strings.Split(overlap.LeftToType, "\n"),
	}
}

// insertionPoint returns the document offset right after the typed part of
// the suggestion, with the overlap it was computed from.
func insertionPoint(s Suggestion, doc *text.Document) (int, Overlap, bool) {
	line, ok := doc.Line(s.anchorLine)
	if !ok {
		return 0, Overlap{}, false
	}
	overlap := ResolveOverlap(s.text, s.anchorOffset, line.Text)
	if !overlap.OK {
		return 0, Overlap{}, false
	}
	return line.From + s.anchorOffset + len(overlap.AlreadyTyped), overlap, true
}
