// Package validation checks retrieval quality against a data-driven list of
// queries with known answers.
//
// Queries live in a YAML file so they can be changed without rebuilding:
//
//	tier1:
//	  - id: T1-1
//	    name: ownership question
//	    query: rust ownership
//	    expected: ["a.txt#1"]
//	negative:
//	  - id: N-1
//	    query: "!!!"
//
// Tier 1 queries must pass, Tier 2 queries are reported but tolerated, and
// negative queries must succeed without ranking any of their expected
// chunks.
package validation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/search"
)

// DefaultTopK is how many chunks a query inspects unless it sets top_k.
const DefaultTopK = 10

// QuerySpec defines a test query with expected results.
type QuerySpec struct {
	ID       string   `yaml:"id"`              // e.g., "T1-3"
	Name     string   `yaml:"name"`            // Human-readable name
	Query    string   `yaml:"query"`           // Free-text query
	TopK     int      `yaml:"top_k,omitempty"` // 0 = validator default
	Expected []string `yaml:"expected"`        // Chunk ids ("a.txt#1") or titles ("a.txt")
	Notes    string   `yaml:"notes,omitempty"` // Optional explanation for maintainers
	Tier     int      `yaml:"-"`               // 1, 2, or 0 for negative
}

// QueryConfig holds all validation queries loaded from YAML.
type QueryConfig struct {
	Tier1    []QuerySpec `yaml:"tier1"`
	Tier2    []QuerySpec `yaml:"tier2"`
	Negative []QuerySpec `yaml:"negative"`
}

// Len is the total number of queries.
func (c *QueryConfig) Len() int {
	return len(c.Tier1) + len(c.Tier2) + len(c.Negative)
}

// LoadQueries reads and parses a query file.
func LoadQueries(path string) (*QueryConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, amerrors.New(amerrors.ErrCodeInvalidPath, "query file does not exist", err).
				WithDetail("path", path)
		}
		return nil, amerrors.IOError("cannot read query file", err).WithDetail("path", path)
	}
	cfg, err := ParseQueries(data)
	if err != nil {
		var coded *amerrors.CodedError
		if errors.As(err, &coded) {
			return nil, coded.WithDetail("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// ParseQueries decodes a query file and assigns tiers. Every query needs a
// unique id; tier 1 and tier 2 queries also need at least one expected
// chunk.
func ParseQueries(data []byte) (*QueryConfig, error) {
	var cfg QueryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, amerrors.ValidationError("cannot parse query file", err)
	}

	seen := make(map[string]bool)
	sections := []struct {
		tier  int
		specs []QuerySpec
	}{
		{1, cfg.Tier1},
		{2, cfg.Tier2},
		{0, cfg.Negative},
	}
	for _, sec := range sections {
		for i := range sec.specs {
			spec := &sec.specs[i]
			spec.Tier = sec.tier
			if spec.ID == "" {
				return nil, amerrors.ValidationError(fmt.Sprintf("query %q has no id", spec.Query), nil)
			}
			if seen[spec.ID] {
				return nil, amerrors.ValidationError("duplicate query id", nil).WithDetail("id", spec.ID)
			}
			seen[spec.ID] = true
			if spec.TopK < 0 {
				return nil, amerrors.New(amerrors.ErrCodeInvalidTopK, "top_k must not be negative", nil).
					WithDetail("id", spec.ID)
			}
			if spec.Tier > 0 && len(spec.Expected) == 0 {
				return nil, amerrors.ValidationError("query has no expected chunks", nil).
					WithDetail("id", spec.ID)
			}
		}
	}
	return &cfg, nil
}

// TestResult captures the outcome of a single query.
type TestResult struct {
	Spec       QuerySpec     `json:"spec"`
	Passed     bool          `json:"passed"`
	Duration   time.Duration `json:"duration_ns"`
	TopResults []string      `json:"top_results"` // Chunk ids returned, best first
	MatchedAt  int           `json:"matched_at"`  // Position of first expected chunk (-1 if not found)
	Error      string        `json:"error,omitempty"`
}

// Report captures the results of a full validation run.
type Report struct {
	Timestamp  time.Time    `json:"timestamp"`
	Tier1      []TestResult `json:"tier1"`
	Tier2      []TestResult `json:"tier2"`
	Negative   []TestResult `json:"negative"`
	Tier1Pass  int          `json:"tier1_pass"`
	Tier1Total int          `json:"tier1_total"`
	Tier2Pass  int          `json:"tier2_pass"`
	Tier2Total int          `json:"tier2_total"`
	NegPass    int          `json:"negative_pass"`
	NegTotal   int          `json:"negative_total"`
}

// Passed reports whether every tier 1 and negative query passed.
func (r *Report) Passed() bool {
	return r.Tier1Pass == r.Tier1Total && r.NegPass == r.NegTotal
}

// Validator runs validation queries against a retriever.
type Validator struct {
	retriever search.Retriever
	topK      int
}

// Option configures a Validator.
type Option func(*Validator)

// WithTopK sets the number of chunks inspected by queries without their
// own top_k.
func WithTopK(k int) Option {
	return func(v *Validator) {
		if k > 0 {
			v.topK = k
		}
	}
}

// NewValidator creates a validator over r.
func NewValidator(r search.Retriever, opts ...Option) *Validator {
	v := &Validator{retriever: r, topK: DefaultTopK}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// RunQuery executes a single query and checks its results.
func (v *Validator) RunQuery(ctx context.Context, spec QuerySpec) TestResult {
	topK := spec.TopK
	if topK == 0 {
		topK = v.topK
	}

	start := time.Now()
	results, err := v.retriever.Retrieve(ctx, spec.Query, topK)
	tr := TestResult{
		Spec:      spec,
		Duration:  time.Since(start),
		MatchedAt: -1,
	}
	if err != nil {
		tr.Error = err.Error()
		return tr
	}

	tr.TopResults = make([]string, len(results))
	for i, r := range results {
		tr.TopResults[i] = r.ID
	}
	tr.MatchedAt = firstMatch(results, spec.Expected)

	if spec.Tier == 0 {
		tr.Passed = tr.MatchedAt < 0
	} else {
		tr.Passed = tr.MatchedAt >= 0
	}
	return tr
}

// RunAll executes every query in cfg, tier by tier.
func (v *Validator) RunAll(ctx context.Context, cfg *QueryConfig) *Report {
	report := &Report{Timestamp: time.Now()}

	for _, spec := range cfg.Tier1 {
		tr := v.RunQuery(ctx, spec)
		report.Tier1 = append(report.Tier1, tr)
		report.Tier1Total++
		if tr.Passed {
			report.Tier1Pass++
		}
	}
	for _, spec := range cfg.Tier2 {
		tr := v.RunQuery(ctx, spec)
		report.Tier2 = append(report.Tier2, tr)
		report.Tier2Total++
		if tr.Passed {
			report.Tier2Pass++
		}
	}
	for _, spec := range cfg.Negative {
		tr := v.RunQuery(ctx, spec)
		report.Negative = append(report.Negative, tr)
		report.NegTotal++
		if tr.Passed {
			report.NegPass++
		}
	}

	return report
}

// firstMatch returns the position of the first result whose id or title is
// listed in expected, or -1.
func firstMatch(results []search.Result, expected []string) int {
	for i, r := range results {
		if slices.Contains(expected, r.ID) || slices.Contains(expected, r.Title) {
			return i
		}
	}
	return -1
}
