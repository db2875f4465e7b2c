package search

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/amanrag/internal/index"
	"github.com/Aman-CERP/amanrag/internal/store"
	"github.com/Aman-CERP/amanrag/internal/telemetry"
)

// Engine ranks the chunks of a document table with field-weighted BM25.
// Retrieve is a pure read and safe for concurrent use.
type Engine struct {
	source    TableSource
	tokenizer store.Tokenizer
	config    EngineConfig
	cache     *lru.Cache[string, *index.Statistics]
	recorder  QueryRecorder

	mu      sync.RWMutex
	current *snapshot
}

// snapshot pairs a loaded table with its statistics.
type snapshot struct {
	version string
	table   *store.Table
	stats   *index.Statistics
}

// Ensure Engine implements Retriever.
var _ Retriever = (*Engine)(nil)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithTokenizer replaces the default tokenizer. It must match the one
// used when statistics are derived elsewhere for the same table.
func WithTokenizer(t store.Tokenizer) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.tokenizer = t
		}
	}
}

// QueryRecorder receives every ranked query.
type QueryRecorder interface {
	Record(event telemetry.QueryEvent)
}

// WithRecorder reports ranked queries to r.
func WithRecorder(r QueryRecorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// NewEngine creates an engine reading tables from source.
func NewEngine(source TableSource, config EngineConfig, opts ...EngineOption) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: table source is required", ErrNilDependency)
	}
	if config.CacheSize <= 0 {
		config.CacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *index.Statistics](config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create statistics cache: %w", err)
	}

	e := &Engine{
		source:    source,
		tokenizer: store.DefaultTokenizer,
		config:    config,
		cache:     cache,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Retrieve returns at most topK chunks ranked by descending score, ties
// broken by ascending table position. Only chunks with a positive score
// are returned. An empty query or topK <= 0 yields an empty result; a
// missing or corrupt table is an error.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int) ([]Result, error) {
	start := time.Now()

	if topK <= 0 {
		return []Result{}, nil
	}
	tokens := e.tokenizer(query)
	if len(tokens) == 0 {
		return []Result{}, nil
	}

	snap, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	results, err := e.rank(ctx, snap, tokens, topK)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	slog.Debug("retrieve_completed",
		slog.Int("tokens", len(tokens)),
		slog.Int("results", len(results)),
		slog.Int("top_k", topK),
		slog.String("version", shortVersion(snap.version)),
		slog.Duration("duration", elapsed))

	if e.recorder != nil {
		e.recorder.Record(telemetry.QueryEvent{
			Query:       query,
			Tokens:      tokens,
			TopK:        topK,
			ResultCount: len(results),
			Latency:     elapsed,
			Timestamp:   start,
		})
	}

	return results, nil
}

type scored struct {
	pos   int
	score float64
}

func (e *Engine) rank(ctx context.Context, snap *snapshot, tokens []string, topK int) ([]Result, error) {
	candidates := snap.stats.Candidates(tokens)
	hits := make([]scored, 0, candidates.GetCardinality())

	it := candidates.Iterator()
	for it.HasNext() {
		pos := int(it.Next())
		s := Score(snap.stats, e.config.Params, e.config.Weights, tokens, pos)
		if s > 0 {
			hits = append(hits, scored{pos: pos, score: s})
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(hits, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.pos, b.pos)
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		doc := snap.table.Docs[h.pos]
		results[i] = Result{
			ID:    doc.ID,
			Title: doc.Title,
			Text:  doc.Body,
			Score: h.score,
		}
	}
	return results, nil
}

// load reads the current table and returns it with its statistics,
// deriving them only for a table version not seen recently.
func (e *Engine) load(ctx context.Context) (*snapshot, error) {
	table, err := e.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	version := table.Version()

	e.mu.RLock()
	cur := e.current
	e.mu.RUnlock()
	if cur != nil && cur.version == version {
		return cur, nil
	}

	stats, ok := e.cache.Get(version)
	if !ok {
		stats = index.DeriveStatistics(table, e.tokenizer)
		e.cache.Add(version, stats)
		slog.Debug("statistics_derived",
			slog.String("version", shortVersion(version)),
			slog.Int("docs", stats.Docs),
			slog.Int("vocabulary", stats.Vocabulary()))
	}

	snap := &snapshot{version: version, table: table, stats: stats}
	e.mu.Lock()
	e.current = snap
	e.mu.Unlock()
	return snap, nil
}

// Stats loads the current table and describes it.
func (e *Engine) Stats(ctx context.Context) (*EngineStats, error) {
	snap, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	return &EngineStats{
		Version:        snap.version,
		Docs:           snap.stats.Docs,
		Vocabulary:     snap.stats.Vocabulary(),
		AvgTitleLength: snap.stats.Field(index.FieldTitle).AvgLength,
		AvgBodyLength:  snap.stats.Field(index.FieldBody).AvgLength,
		CachedVersions: e.cache.Len(),
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() EngineConfig {
	return e.config
}

func shortVersion(v string) string {
	if len(v) > 12 {
		return v[:12]
	}
	return v
}
