package text

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidChange is returned when a change list is out of range or overlaps.
var ErrInvalidChange = errors.New("invalid change")

// Change replaces the range [From, To) of the start document with Insert.
type Change struct {
	From   int
	To     int
	Insert string
}

// State is a document plus the primary cursor (selection head) offset.
type State struct {
	Doc  *Document
	Head int
}

// NewState returns a state over s with the cursor at head (clamped).
func NewState(s string, head int) State {
	doc := NewDocument(s)
	return State{Doc: doc, Head: clamp(head, 0, doc.Len())}
}

// HeadLine returns the line the cursor is on.
func (s State) HeadLine() Line {
	return s.Doc.LineAt(s.Head)
}

// Transaction records one atomic step of the editor: the document before,
// the document after, the changes between them and the resulting cursor.
type Transaction struct {
	StartDoc *Document
	Doc      *Document
	Head     int
	Changes  []Change
}

// DocChanged reports whether the transaction produced a new document.
func (t Transaction) DocChanged() bool {
	return !t.StartDoc.Same(t.Doc)
}

// State returns the state after the transaction.
func (t Transaction) State() State {
	return State{Doc: t.Doc, Head: t.Head}
}

// Apply applies changes atomically. Change offsets refer to s.Doc. When head
// is nil the current head is mapped through the changes. A change list
// that is empty (or only contains no-op changes) keeps the document pointer.
func (s State) Apply(changes []Change, head *int) (Transaction, error) {
	sorted, err := normalizeChanges(changes, s.Doc.Len())
	if err != nil {
		return Transaction{}, err
	}

	doc := s.Doc
	if len(sorted) > 0 {
		var sb strings.Builder
		pos := 0
		src := s.Doc.String()
		for _, c := range sorted {
			sb.WriteString(src[pos:c.From])
			sb.WriteString(c.Insert)
			pos = c.To
		}
		sb.WriteString(src[pos:])
		doc = NewDocument(sb.String())
	}

	newHead := MapPos(sorted, s.Head)
	if head != nil {
		newHead = *head
	}
	newHead = clamp(newHead, 0, doc.Len())

	return Transaction{
		StartDoc: s.Doc,
		Doc:      doc,
		Head:     newHead,
		Changes:  sorted,
	}, nil
}

// MoveTo returns a selection-only transaction.
func (s State) MoveTo(head int) Transaction {
	return Transaction{
		StartDoc: s.Doc,
		Doc:      s.Doc,
		Head:     clamp(head, 0, s.Doc.Len()),
	}
}

// MapPos maps an offset in the start document through sorted changes.
// Positions inside a replaced range move to the end of the insertion.
func MapPos(changes []Change, pos int) int {
	delta := 0
	for _, c := range changes {
		if pos < c.From {
			break
		}
		if pos <= c.To {
			return c.From + delta + len(c.Insert)
		}
		delta += len(c.Insert) - (c.To - c.From)
	}
	return pos + delta
}

func normalizeChanges(changes []Change, docLen int) ([]Change, error) {
	var out []Change
	for _, c := range changes {
		if c.From < 0 || c.To < c.From || c.To > docLen {
			return nil, fmt.Errorf("%w: [%d,%d) in document of length %d", ErrInvalidChange, c.From, c.To, docLen)
		}
		if c.From == c.To && c.Insert == "" {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].From < out[j].From })
	for i := 1; i < len(out); i++ {
		if out[i].From < out[i-1].To {
			return nil, fmt.Errorf("%w: overlapping changes at %d", ErrInvalidChange, out[i].From)
		}
	}
	return out, nil
}
