package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveOverlap(t *testing.T) {
	tests := []struct {
		name       string
		suggestion string
		anchor     int
		line       string
		want       Overlap
	}{
		{
			name:       "nothing typed yet",
			suggestion: "Hello, world!",
			anchor:     0,
			line:       "",
			want:       Overlap{AlreadyTyped: "", LeftToType: "Hello, world!", OK: true},
		},
		{
			name:       "partially typed",
			suggestion: "Hello World",
			anchor:     0,
			line:       "Hello",
			want:       Overlap{AlreadyTyped: "Hello", LeftToType: " World", OK: true},
		},
		{
			name:       "anchored after indentation",
			suggestion: "return nil",
			anchor:     4,
			line:       "    ret",
			want:       Overlap{AlreadyTyped: "ret", LeftToType: "urn nil", OK: true},
		},
		{
			name:       "multiline remainder",
			suggestion: "Hello,\nworld! This is a\nmultiline suggestion.",
			anchor:     0,
			line:       "Hello",
			want:       Overlap{AlreadyTyped: "Hello", LeftToType: ",\nworld! This is a\nmultiline suggestion.", OK: true},
		},
		{
			name:       "anchor past line end",
			suggestion: "Hello",
			anchor:     6,
			line:       "Hello",
		},
		{
			name:       "negative anchor",
			suggestion: "Hello",
			anchor:     -1,
			line:       "Hello",
		},
		{
			name:       "diverged",
			suggestion: "Hello",
			anchor:     0,
			line:       "Xhello",
		},
		{
			name:       "typed exactly the whole suggestion",
			suggestion: "Hello",
			anchor:     0,
			line:       "Hello",
		},
		{
			name:       "typed past the suggestion",
			suggestion: "Hello",
			anchor:     0,
			line:       "Hello!",
		},
		{
			name:       "empty suggestion",
			suggestion: "",
			anchor:     0,
			line:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveOverlap(tt.suggestion, tt.anchor, tt.line)
			assert.Equal(t, tt.want, got)
			if got.OK {
				assert.Equal(t, tt.suggestion, got.AlreadyTyped+got.LeftToType, "parts concatenate to the suggestion")
			}
		})
	}
}

func TestResolveOverlap_AnchorBeyondLine(t *testing.T) {
	line := "abc"
	for anchor := len(line) + 1; anchor < len(line)+10; anchor++ {
		got := ResolveOverlap("abcdef", anchor, line)
		assert.False(t, got.OK, "anchor %d", anchor)
		assert.Empty(t, got.AlreadyTyped)
		assert.Empty(t, got.LeftToType)
	}
}

func TestResolveOverlap_ProperPrefixProperty(t *testing.T) {
	suggestion := "func main() {}"
	prefix := "    "
	for i := 1; i < len(suggestion); i++ {
		line := prefix + suggestion[:i]
		got := ResolveOverlap(suggestion, len(prefix), line)

		assert.True(t, got.OK, "prefix %q", suggestion[:i])
		assert.Equal(t, line[len(prefix):], got.AlreadyTyped)
		assert.Equal(t, suggestion, got.AlreadyTyped+got.LeftToType)
	}
}

func TestResolveOverlap_Idempotent(t *testing.T) {
	first := ResolveOverlap("Hello World", 0, "Hel")
	second := ResolveOverlap("Hello World", 0, "Hel")

	assert.Equal(t, first, second)
}
