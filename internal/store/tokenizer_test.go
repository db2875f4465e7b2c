package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"sentence", "Rust ownership model.", []string{"rust", "ownership", "model"}},
		{"punctuation", "Hello, World!  (again)", []string{"hello", "world", "again"}},
		{"mixed case", "Go CONCURRENCY Model", []string{"go", "concurrency", "model"}},
		{"file name", "notes.txt", []string{"notes", "txt"}},
		{"snake case", "API_KEY", []string{"api", "key"}},
		{"contraction", "don't", []string{"don", "t"}},
		{"pure numbers dropped", "released in 2024", []string{"released", "in"}},
		{"decimal dropped", "pi is 3.14", []string{"pi", "is"}},
		{"alphanumeric kept", "v2 of h264", []string{"v2", "of", "h264"}},
		{"accents", "Naïve Café", []string{"naïve", "café"}},
		{"newlines and tabs", "first\n\nsecond\tthird", []string{"first", "second", "third"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Tokenize(tt.input))
		})
	}
}

func TestTokenize_EmptyInput(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("   \n\t"))
	assert.Empty(t, Tokenize("... !!! 42"))
}

func TestTokenize_Deterministic(t *testing.T) {
	// Given: a reference tokenization
	input := "Ownership is not a Go concept."
	first := Tokenize(input)

	// When: tokenizing other inputs in between
	Tokenize("unrelated text with OTHER words")
	Tokenize("")

	// Then: the result is unchanged
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Tokenize(input))
	}
	assert.Equal(t, []string{"ownership", "is", "not", "a", "go", "concept"}, first)
}

func TestDefaultTokenizer_IsTokenize(t *testing.T) {
	assert.Equal(t, Tokenize("Final notes."), DefaultTokenizer("Final notes."))
}
