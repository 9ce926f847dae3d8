package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ghosttab/text"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		s    Suggestion
		want *Decoration
	}{
		{
			name: "inactive",
			doc:  "Hello",
			s:    Empty(),
		},
		{
			name: "anchor line out of range",
			doc:  "Hello",
			s:    NewSuggestion("Hello World", 0, 3),
		},
		{
			name: "diverged",
			doc:  "Help",
			s:    NewSuggestion("Hello World", 0, 1),
		},
		{
			name: "anchor past line end",
			doc:  "Hi",
			s:    NewSuggestion("Hello World", 4, 1),
		},
		{
			name: "after indentation",
			doc:  "    ret",
			s:    NewSuggestion("return nil", 4, 1),
			want: &Decoration{Offset: 7, Line: 1, Column: 7, Text: "urn nil", Lines: []string{"urn nil"}},
		},
		{
			name: "multiline on a later line",
			doc:  "package main\n\nfunc",
			s:    NewSuggestion("func main() {\n}", 0, 3),
			want: &Decoration{Offset: 18, Line: 3, Column: 4, Text: " main() {\n}", Lines: []string{" main() {", "}"}},
		},
		{
			name: "glued to unrelated text",
			doc:  "Hello",
			s:    NewSuggestion("World Hello", 5, 1),
			want: &Decoration{Offset: 5, Line: 1, Column: 5, Text: "World Hello", Lines: []string{"World Hello"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(tt.s, text.NewDocument(tt.doc))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_NilDocument(t *testing.T) {
	assert.Nil(t, Render(NewSuggestion("Hello", 0, 1), nil))
}
