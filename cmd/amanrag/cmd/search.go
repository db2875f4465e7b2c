package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanrag/internal/daemon"
	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/output"
	"github.com/Aman-CERP/amanrag/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit        int
	defaultLimit bool   // --limit not given; use search.top_k
	format       string // "text", "json"
	local        bool   // skip the daemon
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank document chunks against a query",
		Long: `Rank the chunks of the document table against a free-text query
with BM25. Matches in the file name count twice as much as matches in
the paragraph text.

The query is split into words the same way documents are; word order
and punctuation do not matter. A query with no words, or --limit 0,
returns no results.

A running daemon ('amanrag daemon start') answers the query when
available; --local always ranks in this process.`,
		Example: `  amanrag search "ownership model"
  amanrag search borrow checker --limit 5
  amanrag search "error handling" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			opts.defaultLimit = !cmd.Flags().Changed("limit")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", search.DefaultTopK, "Maximum number of results (default: search.top_k)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.local, "local", false, "Rank in this process even if the daemon is running")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return amerrors.New(amerrors.ErrCodeInvalidInput, "unknown output format: "+opts.format, nil).
			WithSuggestion("Use --format text or --format json")
	}

	p, err := loadProject()
	if err != nil {
		return err
	}

	limit := opts.limit
	if opts.defaultLimit {
		limit = p.cfg.Search.TopK
	}
	slog.Info("search_started", slog.String("query", query), slog.Int("limit", limit))
	results, mode, err := retrieve(ctx, p, query, limit, opts.local)
	if err != nil {
		return err
	}
	slog.Info("search_complete", slog.String("mode", mode), slog.Int("results", len(results)))

	out := output.NewAuto(cmd.OutOrStdout())
	if opts.format == "json" {
		return out.JSON(results)
	}
	out.Results(query, results)
	return nil
}

// retrieve ranks through a running daemon when possible. A daemon that
// fails for any reason other than a coded retrieval error is bypassed.
func retrieve(ctx context.Context, p *project, query string, limit int, local bool) ([]search.Result, string, error) {
	if !local {
		client := daemon.NewClient(daemon.DefaultConfig())
		if client.IsRunning() {
			results, err := client.Retrieve(ctx, daemon.RetrieveParams{Query: query, RootPath: p.root, TopK: limit})
			if err == nil {
				return results, "daemon", nil
			}
			if _, coded := amerrors.As(err); coded {
				return nil, "daemon", err
			}
			slog.Warn("daemon_search_failed", slog.String("error", err.Error()))
		}
	}

	engine, err := p.engine()
	if err != nil {
		return nil, "local", err
	}
	results, err := engine.Retrieve(ctx, query, limit)
	return results, "local", err
}
