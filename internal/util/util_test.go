package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimQuotes(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"hello"`, "hello"},
		{`""hello""`, "hello"},
		{"hello", "hello"},
		{`"`, ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, TrimQuotes(tt.input), tt.input)
	}
}

func TestFixEscapeQuotes(t *testing.T) {
	assert.Equal(t, `say "hi"`, FixEscapeQuotes(`say ""hi""`))
	assert.Equal(t, "plain", FixEscapeQuotes("plain"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"projector", "whiteboard"}, SplitList(" projector | | whiteboard ", "|"))
	assert.Nil(t, SplitList("", "|"))
	assert.Nil(t, SplitList(" | ", "|"))
}
