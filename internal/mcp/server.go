package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/amanrag/internal/async"
	"github.com/Aman-CERP/amanrag/internal/config"
	"github.com/Aman-CERP/amanrag/internal/search"
	"github.com/Aman-CERP/amanrag/internal/telemetry"
	"github.com/Aman-CERP/amanrag/pkg/version"
)

// ServerName is reported to MCP clients.
const ServerName = "amanrag"

// Engine is what the server needs from the retrieval engine.
type Engine interface {
	search.Retriever
	Stats(ctx context.Context) (*search.EngineStats, error)
}

// Server is the MCP server. It hands ranked chunks to a generation step
// running in an MCP client.
type Server struct {
	mcp         *mcp.Server
	engine      Engine
	tablePath   string
	defaultTopK int
	metrics     *telemetry.QueryMetrics
	progress    *async.IndexProgress
	logger      *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithQueryMetrics reports m in index_status. The engine must record into
// the same m for the numbers to move.
func WithQueryMetrics(m *telemetry.QueryMetrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithIndexProgress reports a background ingestion in index_status.
func WithIndexProgress(p *async.IndexProgress) ServerOption {
	return func(s *Server) {
		s.progress = p
	}
}

// maxStatusTerms bounds the top terms listed by index_status.
const maxStatusTerms = 10

// NewServer creates a new MCP server over engine. cfg supplies the default
// result count and the table location reported by index_status; root is
// the project root that relative config paths resolve against.
func NewServer(engine Engine, cfg *config.Config, root string, opts ...ServerOption) (*Server, error) {
	if engine == nil {
		return nil, errors.New("retrieval engine is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	topK := cfg.Search.TopK
	if topK <= 0 {
		topK = search.DefaultTopK
	}

	s := &Server{
		engine:      engine,
		tablePath:   cfg.TablePath(root),
		defaultTopK: topK,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return toolInfos
}

// CallTool invokes a tool by name and returns its markdown rendering.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case ToolRetrieve:
		input, err := retrieveInputFromArgs(args)
		if err != nil {
			return "", err
		}
		out, err := s.retrieve(ctx, input)
		if err != nil {
			return "", MapError(err)
		}
		return FormatResults(input.Query, out.Results), nil
	case ToolIndexStatus:
		return FormatStatus(s.indexStatus(ctx)), nil
	default:
		return "", NewMethodNotFoundError(name)
	}
}

func retrieveInputFromArgs(args map[string]any) (RetrieveInput, error) {
	query, ok := args["query"].(string)
	if !ok {
		return RetrieveInput{}, NewInvalidParamsError("query parameter is required and must be a string")
	}
	input := RetrieveInput{Query: query}

	switch v := args["top_k"].(type) {
	case nil:
	case float64:
		k := topKFromNumber(v)
		input.TopK = &k
	case int:
		input.TopK = &v
	default:
		return RetrieveInput{}, NewInvalidParamsError("top_k must be a number")
	}
	return input, nil
}

// topKFromNumber converts a JSON number to a result count. Fractions are
// truncated, large values are clamped to MaxTopK, and non-finite or
// non-positive values become 0.
func topKFromNumber(v float64) int {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0) || v <= 0:
		return 0
	case v >= MaxTopK:
		return MaxTopK
	default:
		return int(v)
	}
}

// retrieve runs one query. An absent top_k uses the configured default; any
// other value is clamped to [0, MaxTopK], and 0 yields no results.
func (s *Server) retrieve(ctx context.Context, input RetrieveInput) (RetrieveOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	topK := s.defaultTopK
	if input.TopK != nil {
		topK = max(0, min(*input.TopK, MaxTopK))
	}

	s.logger.Info("retrieve started",
		slog.String("request_id", requestID),
		slog.String("query", input.Query),
		slog.Int("top_k", topK))

	results, err := s.engine.Retrieve(ctx, input.Query, topK)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("retrieve failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return RetrieveOutput{}, err
	}

	s.logger.Info("retrieve completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(results)))

	return RetrieveOutput{Results: results}, nil
}

// indexStatus never fails: a missing or unreadable table is reported as
// not ready.
func (s *Server) indexStatus(ctx context.Context) *IndexStatusOutput {
	out := &IndexStatusOutput{TablePath: s.tablePath, Queries: s.queryStats()}
	if s.progress != nil {
		if snap := s.progress.Snapshot(); snap.Status != string(async.StatusReady) {
			out.Indexing = &snap
		}
	}

	stats, err := s.engine.Stats(ctx)
	if err != nil {
		out.Message = MapError(err).Message
		if out.Indexing != nil && out.Indexing.Status == string(async.StatusIndexing) {
			out.Message = "indexing in progress, retry shortly"
		}
		s.logger.Warn("index_status not ready",
			slog.String("table", s.tablePath),
			slog.String("error", err.Error()))
		return out
	}

	out.Ready = true
	out.Chunks = stats.Docs
	out.Vocabulary = stats.Vocabulary
	out.Version = stats.Version
	out.AvgTitleLength = stats.AvgTitleLength
	out.AvgBodyLength = stats.AvgBodyLength
	return out
}

func (s *Server) queryStats() *QueryStats {
	if s.metrics == nil {
		return nil
	}
	snap := s.metrics.Snapshot()
	qs := &QueryStats{
		Total:             snap.TotalQueries,
		ZeroResults:       snap.ZeroResultCount,
		ZeroResultPercent: snap.ZeroResultPercentage(),
		ExactRepeats:      snap.ExactRepeatCount,
		RecentZeroResults: snap.ZeroResultQueries,
	}
	for i, tc := range snap.TopTerms {
		if i == maxStatusTerms {
			break
		}
		qs.TopTerms = append(qs.TopTerms, fmt.Sprintf("%s (%d)", tc.Term, tc.Count))
	}
	return qs
}

func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolRetrieve,
		Description: toolInfos[0].Description,
	}, s.mcpRetrieveHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolIndexStatus,
		Description: toolInfos[1].Description,
	}, s.mcpIndexStatusHandler)

	s.logger.Debug("MCP tools registered", slog.Int("count", len(toolInfos)))
}

// mcpRetrieveHandler is the MCP SDK handler for the retrieve tool.
func (s *Server) mcpRetrieveHandler(ctx context.Context, _ *mcp.CallToolRequest, input RetrieveInput) (
	*mcp.CallToolResult,
	RetrieveOutput,
	error,
) {
	out, err := s.retrieve(ctx, input)
	if err != nil {
		return nil, RetrieveOutput{}, MapError(err)
	}
	return nil, out, nil
}

// mcpIndexStatusHandler is the MCP SDK handler for the index_status tool.
func (s *Server) mcpIndexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	return nil, s.indexStatus(ctx), nil
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server",
		slog.String("transport", transport),
		slog.String("table", s.tablePath))

	switch strings.ToLower(transport) {
	case "", "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped gracefully")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	return uuid.NewString()[:8]
}
