package text

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// ChangesBetween computes a change list that turns oldText into newText.
// Offsets refer to oldText. Adjacent delete+insert pairs are merged into a
// single replacement. Returns nil when the texts are equal.
func ChangesBetween(oldText, newText string) []Change {
	if oldText == newText {
		return nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, true)
	diffs = dmp.DiffCleanupMerge(diffs)

	var changes []Change
	pos := 0
	for i := 0; i < len(diffs); i++ {
		d := diffs[i]
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			pos += len(d.Text)

		case diffmatchpatch.DiffDelete:
			c := Change{From: pos, To: pos + len(d.Text)}
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				c.Insert = diffs[i+1].Text
				i++
			}
			changes = append(changes, c)
			pos = c.To

		case diffmatchpatch.DiffInsert:
			changes = append(changes, Change{From: pos, To: pos, Insert: d.Text})
		}
	}
	return changes
}

// TransactionBetween builds the transaction a host reports after observing a
// whole-buffer snapshot. When the text did not change the start document is
// kept, so the result is a selection-only transaction.
func TransactionBetween(prev State, newText string, newHead int) Transaction {
	changes := ChangesBetween(prev.Doc.String(), newText)
	if len(changes) == 0 {
		return prev.MoveTo(newHead)
	}
	tr, err := prev.Apply(changes, &newHead)
	if err != nil {
		// ChangesBetween only produces in-range, ordered changes
		doc := NewDocument(newText)
		return Transaction{StartDoc: prev.Doc, Doc: doc, Head: clamp(newHead, 0, doc.Len())}
	}
	return tr
}
