package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/index"
	"github.com/Aman-CERP/amanrag/internal/output"
	"github.com/Aman-CERP/amanrag/internal/watcher"
)

type watchOptions struct {
	poll bool
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Rebuild the document table whenever documents change",
		Long: `Build the document table, then watch the source directory and
rebuild the whole table each time changes settle (watch.debounce,
default 500ms). Only top-level files are watched, matching what index
reads. Press Ctrl+C to stop.

A rebuild that fails, for example because another index run holds the
lock, is reported and the previous table stays in place.`,
		Example: `  amanrag watch
  amanrag watch ./notes --poll`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dir := ""
			if len(args) > 0 {
				dir = args[0]
			}
			return runWatch(ctx, cmd, dir, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.poll, "poll", false, "Poll the directory instead of using file system events")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, dir string, opts watchOptions) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	if dir != "" {
		if dir, err = filepath.Abs(dir); err != nil {
			return amerrors.New(amerrors.ErrCodeInvalidPath, "invalid source directory", err)
		}
	}

	debounce, err := p.cfg.DebounceDuration()
	if err != nil {
		return err
	}

	rc := p.runnerConfig(dir)
	rc.LockRetry = amerrors.DefaultRetryConfig()
	runner := index.NewRunner()
	out := output.NewAuto(cmd.OutOrStdout())

	result, err := runner.Run(ctx, rc)
	if err != nil {
		return err
	}
	out.Success(result.String())

	wopts := watcher.DefaultOptions()
	wopts.DebounceWindow = debounce
	wopts.IncludeHidden = p.cfg.Ingest.IncludeHidden
	wopts.ForcePolling = opts.poll
	w, err := watcher.NewHybridWatcher(wopts)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	out.Statusf("👀", "Watching %s (%s). Press Ctrl+C to stop.", rc.SourceDir, w.WatcherType())
	err = watcher.Watch(ctx, w, rc.SourceDir, func(ctx context.Context, batch []watcher.FileEvent) error {
		result, err := runner.Run(ctx, rc)
		if err != nil {
			out.Warning(amerrors.FormatForUser(err, debugMode))
			return err
		}
		out.Successf("%s after %d change(s)", result.String(), len(batch))
		return nil
	})

	if errors.Is(err, context.Canceled) {
		slog.Info("watch_stopped")
		out.Status("👋", "Stopped watching")
		return nil
	}
	return err
}
