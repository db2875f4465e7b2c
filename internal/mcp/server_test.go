package mcp

import (
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanrag/internal/async"
	"github.com/Aman-CERP/amanrag/internal/config"
	"github.com/Aman-CERP/amanrag/internal/index"
	"github.com/Aman-CERP/amanrag/internal/search"
	"github.com/Aman-CERP/amanrag/internal/store"
	"github.com/Aman-CERP/amanrag/internal/telemetry"
)

// mockEngine records the calls it receives.
type mockEngine struct {
	mu       sync.Mutex
	gotTopK  []int
	gotQuery []string
	results  []search.Result
	err      error
	stats    *search.EngineStats
	statsErr error
}

func (m *mockEngine) Retrieve(_ context.Context, query string, topK int) ([]search.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gotQuery = append(m.gotQuery, query)
	m.gotTopK = append(m.gotTopK, topK)
	if m.err != nil {
		return nil, m.err
	}
	if topK < len(m.results) {
		return m.results[:topK], nil
	}
	return m.results, nil
}

func (m *mockEngine) Stats(context.Context) (*search.EngineStats, error) {
	return m.stats, m.statsErr
}

var _ Engine = (*mockEngine)(nil)

func corpusEngine(t *testing.T, opts ...search.EngineOption) *search.Engine {
	t.Helper()
	e, err := search.NewEngine(search.StaticTableSource{Table: store.NewTable([]store.Chunk{
		{ID: "a.txt#1", Title: "a.txt", Body: "Rust ownership model."},
		{ID: "a.txt#2", Title: "a.txt", Body: "Garbage collection notes."},
		{ID: "b.txt#1", Title: "b.txt", Body: "Go concurrency model."},
		{ID: "b.txt#2", Title: "b.txt", Body: "Ownership is not a Go concept."},
	})}, search.DefaultConfig(), opts...)
	require.NoError(t, err)
	return e
}

func TestNewServer_RequiresEngine(t *testing.T) {
	_, err := NewServer(nil, nil, "")
	assert.Error(t, err)
}

func TestServer_Info(t *testing.T) {
	s, err := NewServer(&mockEngine{}, nil, t.TempDir())
	require.NoError(t, err)

	name, ver := s.Info()
	assert.Equal(t, "amanrag", name)
	assert.NotEmpty(t, ver)
	assert.NotNil(t, s.MCPServer())

	tools := s.ListTools()
	require.Len(t, tools, 2)
	assert.Equal(t, ToolRetrieve, tools[0].Name)
	assert.Equal(t, ToolIndexStatus, tools[1].Name)
}

func TestServer_Retrieve_TopK(t *testing.T) {
	neg := -1
	zero := 0
	two := 2
	huge := 1000

	tests := []struct {
		name     string
		topK     *int
		wantTopK int
	}{
		{name: "absent uses configured default", topK: nil, wantTopK: 3},
		{name: "explicit value", topK: &two, wantTopK: 2},
		{name: "zero passes through", topK: &zero, wantTopK: 0},
		{name: "clamped to maximum", topK: &huge, wantTopK: MaxTopK},
		{name: "negative clamped to zero", topK: &neg, wantTopK: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given
			engine := &mockEngine{}
			s, err := NewServer(engine, config.NewConfig(), t.TempDir())
			require.NoError(t, err)

			// When
			_, err = s.retrieve(context.Background(), RetrieveInput{Query: "q", TopK: tt.topK})

			// Then
			require.NoError(t, err)
			assert.Equal(t, []int{tt.wantTopK}, engine.gotTopK)
		})
	}
}

func TestServer_Retrieve_ConfiguredDefault(t *testing.T) {
	engine := &mockEngine{}
	cfg := config.NewConfig()
	cfg.Search.TopK = 7
	s, err := NewServer(engine, cfg, t.TempDir())
	require.NoError(t, err)

	_, err = s.retrieve(context.Background(), RetrieveInput{Query: "q"})

	require.NoError(t, err)
	assert.Equal(t, []int{7}, engine.gotTopK)
}

func TestServer_CallTool_Retrieve(t *testing.T) {
	// Given: a server over the two-file corpus
	s, err := NewServer(corpusEngine(t), nil, t.TempDir())
	require.NoError(t, err)

	// When
	md, err := s.CallTool(context.Background(), ToolRetrieve, map[string]any{
		"query": "ownership model",
		"top_k": float64(2),
	})

	// Then
	require.NoError(t, err)
	assert.Contains(t, md, "### 1. a.txt#1")
	assert.Contains(t, md, "Found 2 results")
}

func TestServer_CallTool_Errors(t *testing.T) {
	s, err := NewServer(&mockEngine{}, nil, t.TempDir())
	require.NoError(t, err)

	_, err = s.CallTool(context.Background(), "search_code", nil)
	assert.Equal(t, ErrCodeMethodNotFound, MapError(err).Code)

	_, err = s.CallTool(context.Background(), ToolRetrieve, map[string]any{})
	assert.Equal(t, ErrCodeInvalidParams, MapError(err).Code)

	_, err = s.CallTool(context.Background(), ToolRetrieve, map[string]any{"query": "q", "top_k": "three"})
	assert.Equal(t, ErrCodeInvalidParams, MapError(err).Code)
}

func TestServer_CallTool_MissingTable(t *testing.T) {
	// Given: an engine over a table that was never built
	root := t.TempDir()
	cfg := config.NewConfig()
	engine, err := search.NewEngine(search.FileTableSource{Path: cfg.TablePath(root)}, search.DefaultConfig())
	require.NoError(t, err)
	s, err := NewServer(engine, cfg, root)
	require.NoError(t, err)

	// When: retrieving
	_, err = s.CallTool(context.Background(), ToolRetrieve, map[string]any{"query": "ownership"})

	// Then: a load error, not an empty result
	require.Error(t, err)
	assert.Equal(t, ErrCodeIndexNotFound, MapError(err).Code)

	// And: index_status reports not ready
	status := s.indexStatus(context.Background())
	assert.False(t, status.Ready)
	assert.Equal(t, filepath.Join(root, "data", "index.json"), status.TablePath)
	assert.NotEmpty(t, status.Message)
}

func TestServer_IndexStatus_Ready(t *testing.T) {
	s, err := NewServer(corpusEngine(t), nil, t.TempDir())
	require.NoError(t, err)

	status := s.indexStatus(context.Background())

	assert.True(t, status.Ready)
	assert.Equal(t, 4, status.Chunks)
	assert.Equal(t, 14, status.Vocabulary)
	assert.Len(t, status.Version, 64)

	md, err := s.CallTool(context.Background(), ToolIndexStatus, nil)
	require.NoError(t, err)
	assert.Contains(t, md, "**Chunks:** 4")
}

func TestServer_IndexStatus_Queries(t *testing.T) {
	// Given a server whose engine records into shared query metrics
	metrics := telemetry.NewQueryMetrics()
	s, err := NewServer(corpusEngine(t, search.WithRecorder(metrics)), nil, t.TempDir(),
		WithQueryMetrics(metrics))
	require.NoError(t, err)

	// When two retrievals run, one of them matching nothing
	ctx := context.Background()
	_, err = s.CallTool(ctx, ToolRetrieve, map[string]any{"query": "ownership model"})
	require.NoError(t, err)
	_, err = s.CallTool(ctx, ToolRetrieve, map[string]any{"query": "kubernetes"})
	require.NoError(t, err)

	// Then index_status reports them
	status := s.indexStatus(ctx)
	require.NotNil(t, status.Queries)
	assert.Equal(t, int64(2), status.Queries.Total)
	assert.Equal(t, int64(1), status.Queries.ZeroResults)
	assert.InDelta(t, 50.0, status.Queries.ZeroResultPercent, 0.001)
	assert.Equal(t, []string{"kubernetes"}, status.Queries.RecentZeroResults)
	assert.Contains(t, status.Queries.TopTerms, "model (1)")
}

func TestServer_IndexStatus_WithoutMetrics(t *testing.T) {
	s, err := NewServer(corpusEngine(t), nil, t.TempDir())
	require.NoError(t, err)

	assert.Nil(t, s.indexStatus(context.Background()).Queries)
}

func TestServer_IndexStatus_Indexing(t *testing.T) {
	// Given a server over a missing table while a background run reports progress
	root := t.TempDir()
	engine, err := search.NewEngine(search.FileTableSource{Path: filepath.Join(root, "missing.json")}, search.DefaultConfig())
	require.NoError(t, err)
	progress := async.NewIndexProgress()
	progress.Report(index.StageRead, 1, 4, "a.txt")
	s, err := NewServer(engine, nil, root, WithIndexProgress(progress))
	require.NoError(t, err)

	// When status is requested during the run
	status := s.indexStatus(context.Background())

	// Then it is not ready and shows the progress
	assert.False(t, status.Ready)
	require.NotNil(t, status.Indexing)
	assert.Equal(t, "read", status.Indexing.Stage)
	assert.Contains(t, status.Message, "indexing in progress")

	// And once the run finishes the progress is no longer reported
	progress.SetReady()
	assert.Nil(t, s.indexStatus(context.Background()).Indexing)
}

// connect runs s over in-memory transports and returns a client session.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ss, err := s.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func TestServer_Protocol_ListTools(t *testing.T) {
	s, err := NewServer(corpusEngine(t), nil, t.TempDir())
	require.NoError(t, err)
	cs := connect(t, s)

	res, err := cs.ListTools(context.Background(), nil)

	require.NoError(t, err)
	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{ToolRetrieve, ToolIndexStatus}, names)
}

func TestServer_Protocol_Retrieve(t *testing.T) {
	// Given: a connected client
	s, err := NewServer(corpusEngine(t), nil, t.TempDir())
	require.NoError(t, err)
	cs := connect(t, s)

	// When
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolRetrieve,
		Arguments: map[string]any{"query": "ownership model", "top_k": 2},
	})

	// Then: the ranked list comes back as structured content
	require.NoError(t, err)
	require.False(t, res.IsError)
	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out RetrieveOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out.Results, 2)
	assert.Equal(t, "a.txt#1", out.Results[0].ID)
	assert.Equal(t, "Rust ownership model.", out.Results[0].Text)
	assert.Greater(t, out.Results[0].Score, out.Results[1].Score)
}

func TestServer_Protocol_RetrieveNegativeTopK(t *testing.T) {
	// Given
	s, err := NewServer(corpusEngine(t), nil, t.TempDir())
	require.NoError(t, err)
	cs := connect(t, s)

	// When: a negative top_k is requested
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolRetrieve,
		Arguments: map[string]any{"query": "ownership", "top_k": -1},
	})

	// Then: an empty result list, not an error
	require.NoError(t, err)
	require.False(t, res.IsError)
	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out RetrieveOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Empty(t, out.Results)
}

func TestRetrieveInputFromArgs_TopK(t *testing.T) {
	tests := []struct {
		name     string
		topK     any
		wantTopK int
	}{
		{name: "whole number", topK: float64(4), wantTopK: 4},
		{name: "fraction truncated", topK: 2.7, wantTopK: 2},
		{name: "negative", topK: float64(-3), wantTopK: 0},
		{name: "above maximum", topK: float64(MaxTopK + 1), wantTopK: MaxTopK},
		{name: "huge", topK: 1e300, wantTopK: MaxTopK},
		{name: "huge negative", topK: -1e300, wantTopK: 0},
		{name: "infinity", topK: math.Inf(1), wantTopK: 0},
		{name: "NaN", topK: math.NaN(), wantTopK: 0},
		{name: "int", topK: 5, wantTopK: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When
			input, err := retrieveInputFromArgs(map[string]any{"query": "q", "top_k": tt.topK})

			// Then
			require.NoError(t, err)
			require.NotNil(t, input.TopK)
			assert.Equal(t, tt.wantTopK, *input.TopK)
		})
	}
}
