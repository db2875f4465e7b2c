package index

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Aman-CERP/amanrag/internal/store"
)

// Field identifies a scored field of a chunk.
type Field int

const (
	FieldTitle Field = iota
	FieldBody

	numFields = 2
)

// Fields lists every scored field in a fixed order.
var Fields = [numFields]Field{FieldTitle, FieldBody}

// String returns the field's JSON name.
func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldBody:
		return "body"
	default:
		return "unknown"
	}
}

// FieldStats holds the term statistics of one field across the table.
type FieldStats struct {
	// Postings maps a token to the positions of documents whose field
	// contains it. Cardinality is the field's document frequency.
	Postings map[string]*roaring.Bitmap

	// TermFreqs[d][token] is how often token occurs in document d's field.
	TermFreqs []map[string]int

	// Lengths[d] is the token count of document d's field.
	Lengths []int

	// AvgLength is the mean of Lengths, 0 for an empty table.
	AvgLength float64
}

// Statistics are the term statistics derived from one table. They are
// read-only once returned and safe to share between concurrent queries.
type Statistics struct {
	// Docs is the number of chunks in the table.
	Docs int

	fields [numFields]FieldStats
}

// DeriveStatistics tokenizes every chunk's title and body with tok and
// records per-field document frequencies, term frequencies and lengths.
// A nil tok means store.DefaultTokenizer.
func DeriveStatistics(table *store.Table, tok store.Tokenizer) *Statistics {
	if tok == nil {
		tok = store.DefaultTokenizer
	}

	n := table.Len()
	s := &Statistics{Docs: n}
	for _, f := range Fields {
		s.fields[f] = FieldStats{
			Postings:  make(map[string]*roaring.Bitmap),
			TermFreqs: make([]map[string]int, n),
			Lengths:   make([]int, n),
		}
	}

	for i := 0; i < n; i++ {
		doc := table.Docs[i]
		s.addField(FieldTitle, uint32(i), tok(doc.Title))
		s.addField(FieldBody, uint32(i), tok(doc.Body))
	}

	for _, f := range Fields {
		fs := &s.fields[f]
		if n == 0 {
			continue
		}
		total := 0
		for _, l := range fs.Lengths {
			total += l
		}
		fs.AvgLength = float64(total) / float64(n)
	}
	return s
}

func (s *Statistics) addField(f Field, doc uint32, tokens []string) {
	fs := &s.fields[f]
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	for t := range tf {
		bm, ok := fs.Postings[t]
		if !ok {
			bm = roaring.New()
			fs.Postings[t] = bm
		}
		bm.Add(doc)
	}
	fs.TermFreqs[doc] = tf
	fs.Lengths[doc] = len(tokens)
}

// Field returns the statistics of f.
func (s *Statistics) Field(f Field) *FieldStats {
	return &s.fields[f]
}

// DocFreq is the number of documents whose field f contains token.
func (s *Statistics) DocFreq(f Field, token string) int {
	if bm, ok := s.fields[f].Postings[token]; ok {
		return int(bm.GetCardinality())
	}
	return 0
}

// TermFreq is how often token occurs in field f of document doc.
func (s *Statistics) TermFreq(f Field, doc int, token string) int {
	return s.fields[f].TermFreqs[doc][token]
}

// Candidates returns the positions of documents containing at least one of
// tokens in any field. The bitmap is freshly allocated and owned by the
// caller.
func (s *Statistics) Candidates(tokens []string) *roaring.Bitmap {
	var sets []*roaring.Bitmap
	for _, f := range Fields {
		for _, t := range tokens {
			if bm, ok := s.fields[f].Postings[t]; ok {
				sets = append(sets, bm)
			}
		}
	}
	if len(sets) == 0 {
		return roaring.New()
	}
	return roaring.FastOr(sets...)
}

// Vocabulary is the number of distinct tokens across all fields.
func (s *Statistics) Vocabulary() int {
	seen := make(map[string]struct{}, len(s.fields[FieldBody].Postings))
	for _, f := range Fields {
		for t := range s.fields[f].Postings {
			seen[t] = struct{}{}
		}
	}
	return len(seen)
}
