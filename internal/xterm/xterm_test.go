package xterm

// Test Plan for xterm:
// - SplitLines handles \n, \r\n, and bare \r without producing spurious
//   empty lines
// - SplitLines preserves a trailing partial line with no terminator
// - HasLineEnding recognizes \n and \r as terminators, and an empty
//   string as vacuously terminated

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"lf", "a\nb\nc", []string{"a", "b", "c"}},
		{"crlf", "a\r\nb\r\nc", []string{"a", "b", "c"}},
		{"cr", "a\rb\rc", []string{"a", "b", "c"}},
		{"mixed", "a\nb\r\nc\rd", []string{"a", "b", "c", "d"}},
		{"trailing newline", "a\nb\n", []string{"a", "b"}},
		{"empty", "", nil},
		{"no terminator", "abc", []string{"abc"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, SplitLines(tt.input))
		})
	}
}

func TestHasLineEnding(t *testing.T) {
	t.Parallel()

	assert.True(t, HasLineEnding(""))
	assert.True(t, HasLineEnding("abc\n"))
	assert.True(t, HasLineEnding("abc\r"))
	assert.False(t, HasLineEnding("abc"))
}
