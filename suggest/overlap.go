package suggest

import (
	"strings"

	"ghosttab/logger"
)

// Overlap splits a suggestion into the part the user already typed and the
// part still to be inserted. When OK is false both strings are empty and the
// suggestion does not fit the line anymore.
type Overlap struct {
	AlreadyTyped string
	LeftToType   string
	OK           bool
}

// ResolveOverlap compares a suggestion anchored at anchorOffset with the
// current text of its line.
//
// The text after the anchor must be a proper prefix of the suggestion:
// anything else (anchor past the line end, diverging input, input that
// already covers the whole suggestion) yields a zero Overlap.
func ResolveOverlap(suggestion string, anchorOffset int, lineText string) Overlap {
	if anchorOffset < 0 || anchorOffset > len(lineText) {
		logger.Debug("suggest: anchor %d outside line of length %d", anchorOffset, len(lineText))
		return Overlap{}
	}

	tail := lineText[anchorOffset:]
	if !strings.HasPrefix(suggestion, tail) {
		return Overlap{}
	}

	typed := len(lineText) - anchorOffset
	if typed >= len(suggestion) {
		return Overlap{}
	}

	return Overlap{
		AlreadyTyped: suggestion[:typed],
		LeftToType:   suggestion[typed:],
		OK:           true,
	}
}
