package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeAnchorOffset(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		suggestion string
		wantOffset int
		wantOK     bool
	}{
		{"empty suggestion", "Hello", "", 0, false},
		{"empty line", "", "Hello, world!", 0, true},
		{"suggestion extends line", "Hello", "Hello World", 0, true},
		{"line already covers suggestion", "Hello", "Hello", 0, false},
		{"trimmed line covers suggestion", "  Hello", "  Hello", 0, true},
		{"trimmed line longer than suggestion", "Hello", "Hell", 5, true},
		{"leading whitespace normalized", "     Hello", "Hello World", 5, true},
		{"tab indentation", "\t\tif x", "if x {", 2, true},
		{"whitespace-only line", "    ", "return nil", 4, true},
		{"no prefix relationship", "Hello", "World Hello", 5, true},
		{"no prefix relationship after indent", "  foo", "bar", 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, ok := ComputeAnchorOffset(tt.line, tt.suggestion)
			assert.Equal(t, tt.wantOK, ok, "ok")
			if tt.wantOK {
				assert.Equal(t, tt.wantOffset, offset, "offset")
			}
		})
	}
}

func TestComputeAnchorOffset_IndentedSuggestionWithIndentedLine(t *testing.T) {
	// suggestion repeats the indentation, so it anchors at the line start
	offset, ok := ComputeAnchorOffset("    ret", "    return nil")

	assert.True(t, ok)
	assert.Equal(t, 0, offset)
}
