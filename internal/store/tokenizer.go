package store

import (
	"strings"
	"unicode"

	"github.com/blevesearch/segment"
)

// Tokenizer turns raw text into normalized tokens. Index-time and
// query-time callers must use the same Tokenizer, otherwise recall
// silently degrades.
type Tokenizer func(text string) []string

// DefaultTokenizer is the tokenizer used by ingestion and retrieval unless
// a caller supplies another one.
var DefaultTokenizer Tokenizer = Tokenize

// Tokenize splits text into lower-cased word tokens.
//
// Text is segmented on Unicode (UAX #29) word boundaries. Only word-like
// segments are kept: letters, ideographs and kana. Punctuation, whitespace
// and pure numbers are dropped. Segments that UAX #29 keeps whole across
// inner punctuation are split into their alphanumeric runs, and digit-only
// runs are dropped. No stemming, no stopwords.
//
// Examples:
//   - "Rust ownership model." -> ["rust", "ownership", "model"]
//   - "notes.txt, v2" -> ["notes", "txt", "v2"]
//   - "released in 2024" -> ["released", "in"]
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var tokens []string
	seg := segment.NewWordSegmenterDirect([]byte(text))
	for seg.Segment() {
		switch seg.Type() {
		case segment.Letter, segment.Ideo, segment.Kana:
		default:
			continue
		}
		for _, run := range strings.FieldsFunc(seg.Text(), isSeparator) {
			if allDigits(run) {
				continue
			}
			tokens = append(tokens, strings.ToLower(run))
		}
	}
	return tokens
}

// isSeparator reports runes that split a word segment: anything that is
// not a letter, digit or combining mark.
func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r)
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
