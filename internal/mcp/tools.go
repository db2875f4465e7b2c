package mcp

import (
	"github.com/Aman-CERP/amanrag/internal/async"
	"github.com/Aman-CERP/amanrag/internal/search"
)

// Tool names.
const (
	ToolRetrieve    = "retrieve"
	ToolIndexStatus = "index_status"
)

// MaxTopK caps the number of results one tool call may request.
const MaxTopK = 50

// RetrieveInput defines the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the free-text query to rank document chunks against"`
	TopK  *int   `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return, default 3"`
}

// RetrieveOutput defines the output schema for the retrieve tool.
type RetrieveOutput struct {
	Results []search.Result `json:"results" jsonschema:"ranked chunks, highest score first"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	Ready          bool    `json:"ready"`
	TablePath      string  `json:"table_path"`
	Chunks         int     `json:"chunks"`
	Vocabulary     int     `json:"vocabulary"`
	Version        string  `json:"version,omitempty"`
	AvgTitleLength float64 `json:"avg_title_length"`
	AvgBodyLength  float64 `json:"avg_body_length"`
	Message        string  `json:"message,omitempty"`

	// Queries summarizes retrieve calls served since startup. It is absent
	// when the server was created without query metrics.
	Queries *QueryStats `json:"queries,omitempty"`

	// Indexing is set while a background ingestion started by the server
	// is running or after it failed.
	Indexing *async.IndexProgressSnapshot `json:"indexing,omitempty"`
}

// QueryStats is the index_status view of recorded query metrics.
type QueryStats struct {
	Total             int64    `json:"total"`
	ZeroResults       int64    `json:"zero_results"`
	ZeroResultPercent float64  `json:"zero_result_percent"`
	ExactRepeats      int64    `json:"exact_repeats"`
	TopTerms          []string `json:"top_terms,omitempty"`
	RecentZeroResults []string `json:"recent_zero_results,omitempty"`
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var toolInfos = []ToolInfo{
	{
		Name:        ToolRetrieve,
		Description: "Ranks the indexed document chunks against a query with BM25 (title matches weigh twice as much as body matches) and returns the top results as {id, title, text, score}.",
	},
	{
		Name:        ToolIndexStatus,
		Description: "Reports whether the document table exists, how many chunks it holds, and its version.",
	},
}
