package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanrag/internal/async"
	"github.com/Aman-CERP/amanrag/internal/index"
	"github.com/Aman-CERP/amanrag/internal/logging"
	"github.com/Aman-CERP/amanrag/internal/mcp"
	"github.com/Aman-CERP/amanrag/internal/search"
	"github.com/Aman-CERP/amanrag/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	var (
		transport string
		autoIndex bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve retrieval over the Model Context Protocol",
		Long: `Start an MCP server on stdin/stdout exposing two tools:

  retrieve      rank chunks for a query (query, top_k)
  index_status  report whether a document table is available, plus
                counts of the queries served so far

stdout carries JSON-RPC only. Logs go to ~/.amanrag/logs/. The table
file is re-read when it changes, so 'amanrag index' or 'amanrag watch'
can run alongside the server. When no table exists yet, one is built
in the background and index_status reports its progress.`,
		Example: `  # Claude Desktop / Cursor MCP config
  {"command": "amanrag", "args": ["serve"]}`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, transport, autoIndex)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport type (stdio)")
	cmd.Flags().BoolVar(&autoIndex, "auto-index", true, "Build a missing document table in the background")

	return cmd
}

func runServe(ctx context.Context, transport string, autoIndex bool) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	level := p.cfg.Server.LogLevel
	if debugMode {
		level = "debug"
	}
	cleanup, err := logging.SetupDefault(logging.ServeConfig(level))
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()

	metrics := telemetry.NewQueryMetrics()
	engine, err := p.engine(search.WithRecorder(metrics))
	if err != nil {
		return err
	}

	opts := []mcp.ServerOption{mcp.WithQueryMetrics(metrics)}
	if autoIndex && !fileExists(p.tablePath()) {
		bg := backgroundIndexer(p)
		bg.Start(ctx)
		defer bg.Stop()
		opts = append(opts, mcp.WithIndexProgress(bg.Progress()))
	}

	srv, err := mcp.NewServer(engine, p.cfg, p.root, opts...)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	slog.Info("serve_started",
		slog.String("root", p.root),
		slog.String("table", p.tablePath()))
	return srv.Serve(ctx, transport)
}

// backgroundIndexer builds the project's table off the request path.
func backgroundIndexer(p *project) *async.BackgroundIndexer {
	rc := p.runnerConfig("")
	return async.NewBackgroundIndexer(func(ctx context.Context, progress *async.IndexProgress) error {
		res, err := index.NewRunner(index.WithProgress(progress.Report)).Run(ctx, rc)
		if err != nil {
			return err
		}
		progress.SetChunks(res.Chunks)
		return nil
	})
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
