package text

import (
	"strings"
	"unicode/utf8"
)

// WordBoundaryChars defines characters that end a word for partial accept.
const WordBoundaryChars = " \t.,;:!?()[]{}\"'`<>/"

// FindNextWordBoundary returns the byte length of the prefix of s that a
// single accept-word step commits: leading spaces and tabs, then everything
// up to and including the next boundary character. A line break ends the
// step without being consumed unless it is the first byte, in which case
// only the line break is committed. Returns len(s) when no boundary exists.
func FindNextWordBoundary(s string) int {
	if strings.HasPrefix(s, "\n") {
		return 1
	}

	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	if i > 0 && (i == len(s) || s[i] == '\n') {
		return i
	}

	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == '\n' {
			return i
		}
		i += size
		if strings.ContainsRune(WordBoundaryChars, r) {
			return i
		}
	}
	return len(s)
}
