package suggest

import (
	"strings"
	"unicode"
)

// ComputeAnchorOffset decides where on the current line a freshly fetched
// suggestion begins. ok is false when there is nothing to show.
//
//   - suggestion starts with the whole line: anchor at 0, unless the line
//     (without indentation) is already as long as the suggestion
//   - suggestion starts with the line minus its indentation: anchor after
//     the indentation
//   - otherwise the suggestion is appended at the end of the line
func ComputeAnchorOffset(lineText, suggestion string) (offset int, ok bool) {
	if suggestion == "" {
		return 0, false
	}

	trimmed := strings.TrimLeftFunc(lineText, unicode.IsSpace)

	if strings.HasPrefix(suggestion, lineText) {
		if len(trimmed) >= len(suggestion) {
			return 0, false
		}
		return 0, true
	}

	if strings.HasPrefix(suggestion, trimmed) {
		return len(lineText) - len(trimmed), true
	}

	// No prefix relationship. The suggestion renders glued to the end of
	// the line.
	return len(lineText), true
}
