package text

import (
	"sort"
	"strings"
	"sync/atomic"
)

// documentVersion hands out a fresh version to every document snapshot.
var documentVersion atomic.Uint64

// Document is an immutable snapshot of an editor buffer.
//
// Identity matters: two *Document values are the same snapshot only when
// they are the same pointer. A transaction that changes nothing keeps the
// pointer, any change produces a new one, even if the resulting text is
// byte-for-byte identical to some earlier snapshot.
type Document struct {
	text       string
	lineStarts []int // byte offset of the first byte of every line
	version    uint64
}

// Line is a single line of a Document. Number is 1-indexed, From and To are
// byte offsets (To excludes the line break).
type Line struct {
	Number int
	From   int
	To     int
	Text   string
}

// NewDocument creates a snapshot holding s.
func NewDocument(s string) *Document {
	starts := []int{0}
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Document{
		text:       s,
		lineStarts: starts,
		version:    documentVersion.Add(1),
	}
}

// FromLines builds a document from lines joined with "\n".
func FromLines(lines []string) *Document {
	return NewDocument(JoinLines(lines))
}

func (d *Document) String() string { return d.text }

// Len returns the document length in bytes.
func (d *Document) Len() int { return len(d.text) }

// Lines returns the number of lines. An empty document has one line.
func (d *Document) Lines() int { return len(d.lineStarts) }

// Version is a process-unique, monotonically increasing snapshot number.
func (d *Document) Version() uint64 { return d.version }

// Same reports whether d and other are the same snapshot.
func (d *Document) Same(other *Document) bool {
	return d != nil && d == other
}

// Line returns the line with the given 1-indexed number.
// ok is false when n is out of range.
func (d *Document) Line(n int) (Line, bool) {
	if n < 1 || n > len(d.lineStarts) {
		return Line{}, false
	}
	from := d.lineStarts[n-1]
	to := len(d.text)
	if n < len(d.lineStarts) {
		to = d.lineStarts[n] - 1
	}
	return Line{Number: n, From: from, To: to, Text: d.text[from:to]}, true
}

// LineAt returns the line containing offset. Offsets are clamped to the
// document.
func (d *Document) LineAt(offset int) Line {
	offset = clamp(offset, 0, len(d.text))
	// first line start strictly greater than offset, minus one
	idx := sort.Search(len(d.lineStarts), func(i int) bool {
		return d.lineStarts[i] > offset
	}) - 1
	line, _ := d.Line(idx + 1)
	return line
}

// Slice returns the text between two offsets, clamped to the document.
func (d *Document) Slice(from, to int) string {
	from = clamp(from, 0, len(d.text))
	to = clamp(to, from, len(d.text))
	return d.text[from:to]
}

// Offset converts a position (1-indexed row, 0-indexed byte col) to an
// offset. Both coordinates are clamped.
func (d *Document) Offset(row, col int) int {
	row = clamp(row, 1, len(d.lineStarts))
	line, _ := d.Line(row)
	return line.From + clamp(col, 0, line.To-line.From)
}

// Position converts an offset to (1-indexed row, 0-indexed byte col).
func (d *Document) Position(offset int) (row, col int) {
	line := d.LineAt(offset)
	return line.Number, clamp(offset, 0, len(d.text)) - line.From
}

// SplitLines returns the document text split on "\n".
func (d *Document) SplitLines() []string {
	return strings.Split(d.text, "\n")
}

// JoinLines joins lines with "\n".
func JoinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
