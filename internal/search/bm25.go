package search

import (
	"math"

	"github.com/Aman-CERP/amanrag/internal/index"
)

// Params are the BM25 constants.
//
//	score(d) = Σ_q Σ_f w_f · idf_f(q) · tf·(k1+1) / (tf + k1·(1 − b + b·len_f(d)/avglen_f))
//	idf_f(q) = ln(1 + (N − df_f(q) + 0.5) / (df_f(q) + 0.5))
type Params struct {
	// K1 controls term frequency saturation.
	K1 float64

	// B controls document length normalization (0 = none, 1 = full).
	B float64
}

// DefaultParams returns k1 = 1.2, b = 0.75.
func DefaultParams() Params {
	return Params{K1: 1.2, B: 0.75}
}

// IDF is the inverse document frequency of a token found in df of n
// documents. It is always positive.
func IDF(n, df int) float64 {
	return math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
}

// termScore is the saturated term frequency component of one token in one
// field of one document.
func (p Params) termScore(tf, length int, avgLength float64) float64 {
	if tf == 0 {
		return 0
	}
	norm := 1.0
	if avgLength > 0 {
		norm = 1 - p.B + p.B*float64(length)/avgLength
	}
	f := float64(tf)
	return f * (p.K1 + 1) / (f + p.K1*norm)
}

// Score computes the BM25 score of document doc for tokens. Repeated query
// tokens contribute once per occurrence.
func Score(stats *index.Statistics, p Params, w FieldWeights, tokens []string, doc int) float64 {
	var score float64
	for _, f := range index.Fields {
		weight := w.Weight(f)
		if weight == 0 {
			continue
		}
		fs := stats.Field(f)
		for _, t := range tokens {
			tf := fs.TermFreqs[doc][t]
			if tf == 0 {
				continue
			}
			idf := IDF(stats.Docs, stats.DocFreq(f, t))
			score += weight * idf * p.termScore(tf, fs.Lengths[doc], fs.AvgLength)
		}
	}
	return score
}
