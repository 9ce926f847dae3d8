package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghosttab/text"
)

func TestBuildCommitEdit(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		s    Suggestion
		want *Edit
	}{
		{
			name: "inactive",
			doc:  "Hello",
			s:    Empty(),
		},
		{
			name: "diverged",
			doc:  "Help",
			s:    NewSuggestion("Hello World", 0, 1),
		},
		{
			name: "remainder at end of line",
			doc:  "Hello",
			s:    NewSuggestion("Hello World", 0, 1),
			want: &Edit{
				Changes: []text.Change{{From: 5, To: 5, Insert: " World"}},
				Head:    11,
				Effects: []Effect{Clear{}},
			},
		},
		{
			name: "multiline on second line",
			doc:  "x\n  if",
			s:    NewSuggestion("if ok {\n}", 2, 2),
			want: &Edit{
				Changes: []text.Change{{From: 6, To: 6, Insert: " ok {\n}"}},
				Head:    13,
				Effects: []Effect{Clear{}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildCommitEdit(tt.s, text.NewDocument(tt.doc))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildCommitEdit_Applied(t *testing.T) {
	st := text.NewState("x\n  if", 6)
	s := NewSuggestion("if ok {\n}", 2, 2)

	edit := BuildCommitEdit(s, st.Doc)
	require.NotNil(t, edit)

	tr, err := st.Apply(edit.Changes, &edit.Head)
	require.NoError(t, err)

	assert.Equal(t, "x\n  if ok {\n}", tr.Doc.String())
	assert.Equal(t, tr.Doc.Len(), tr.Head)
	assert.Equal(t, Empty(), Transition(s, UpdateFromTransaction(tr, edit.Effects...)))
}

func TestBuildPartialCommitEdit(t *testing.T) {
	st := text.NewState("Hello", 5)
	s := NewSuggestion("Hello World foo", 0, 1)

	edit := BuildPartialCommitEdit(s, st.Doc)
	require.NotNil(t, edit)
	assert.Equal(t, []text.Change{{From: 5, To: 5, Insert: " World "}}, edit.Changes)
	assert.Equal(t, 12, edit.Head)
	assert.Empty(t, edit.Effects)

	tr, err := st.Apply(edit.Changes, &edit.Head)
	require.NoError(t, err)
	s = Transition(s, UpdateFromTransaction(tr, edit.Effects...))
	assert.True(t, s.Active(), "suggestion survives a word accept")

	dec := Render(s, tr.Doc)
	require.NotNil(t, dec)
	assert.Equal(t, "foo", dec.Text)

	// last word exhausts the remainder
	edit = BuildPartialCommitEdit(s, tr.Doc)
	require.NotNil(t, edit)
	assert.Equal(t, []text.Change{{From: 12, To: 12, Insert: "foo"}}, edit.Changes)
	assert.Equal(t, []Effect{Clear{}}, edit.Effects)

	st = tr.State()
	tr, err = st.Apply(edit.Changes, &edit.Head)
	require.NoError(t, err)
	assert.Equal(t, "Hello World foo", tr.Doc.String())
	assert.Equal(t, Empty(), Transition(s, UpdateFromTransaction(tr, edit.Effects...)))
}

func TestBuildPartialCommitEdit_LineBreak(t *testing.T) {
	st := text.NewState("Hello,", 6)
	s := NewSuggestion("Hello,\nworld", 0, 1)

	edit := BuildPartialCommitEdit(s, st.Doc)
	require.NotNil(t, edit)
	assert.Equal(t, []text.Change{{From: 6, To: 6, Insert: "\n"}}, edit.Changes)
	assert.Equal(t, 7, edit.Head)
	assert.Equal(t, []Effect{Clear{}}, edit.Effects)
}

func TestBuildPartialCommitEdit_Inactive(t *testing.T) {
	assert.Nil(t, BuildPartialCommitEdit(Empty(), text.NewDocument("Hello")))
	assert.Nil(t, BuildPartialCommitEdit(NewSuggestion("Hello", 0, 1), nil))
}
