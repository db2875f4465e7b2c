// Package search ranks the chunks of a document table against a free-text
// query with field-weighted BM25.
package search

import (
	"context"

	"github.com/Aman-CERP/amanrag/internal/index"
)

// DefaultTopK is the number of results returned when the caller does not
// ask for a specific count.
const DefaultTopK = 3

// DefaultCacheSize is how many derived statistics are kept, one per table
// version.
const DefaultCacheSize = 8

// Retriever answers top-K relevance queries.
type Retriever interface {
	// Retrieve returns at most topK chunks ranked by relevance to query.
	Retrieve(ctx context.Context, query string, topK int) ([]Result, error)
}

// Result is one ranked chunk. It is handed verbatim to downstream
// consumers.
type Result struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// FieldWeights scales each field's BM25 contribution.
type FieldWeights struct {
	Title float64
	Body  float64
}

// DefaultFieldWeights weighs title matches twice as much as body matches.
func DefaultFieldWeights() FieldWeights {
	return FieldWeights{Title: 2, Body: 1}
}

// Weight returns the weight of f.
func (w FieldWeights) Weight(f index.Field) float64 {
	switch f {
	case index.FieldTitle:
		return w.Title
	case index.FieldBody:
		return w.Body
	default:
		return 0
	}
}

// EngineConfig configures the retrieval engine.
type EngineConfig struct {
	// Params are the BM25 constants.
	Params Params

	// Weights are the per-field weights.
	Weights FieldWeights

	// CacheSize bounds the statistics cache (default: 8).
	CacheSize int
}

// DefaultConfig returns the standard ranking configuration.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		Params:    DefaultParams(),
		Weights:   DefaultFieldWeights(),
		CacheSize: DefaultCacheSize,
	}
}

// EngineStats describes the table currently served by the engine.
type EngineStats struct {
	Version        string  `json:"version"`
	Docs           int     `json:"docs"`
	Vocabulary     int     `json:"vocabulary"`
	AvgTitleLength float64 `json:"avg_title_length"`
	AvgBodyLength  float64 `json:"avg_body_length"`
	CachedVersions int     `json:"cached_versions"`
}
