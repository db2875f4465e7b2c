package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/index"
	"github.com/Aman-CERP/amanrag/internal/output"
	"github.com/Aman-CERP/amanrag/internal/ui"
)

type indexOptions struct {
	wait       bool
	jsonOutput bool
	noTUI      bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index [dir]",
		Short: "Build the document table from a directory",
		Long: `Read every top-level text file of a directory, split it into
paragraph chunks and write the document table.

Without [dir] the configured source directory (paths.sources, default
./docs) is used and created if it does not exist. The table replaces the
previous one atomically; running index twice on unchanged documents
writes an identical file.

Only one index run may write at a time. Use --wait to retry for a few
seconds when another run holds the lock.`,
		Example: `  amanrag index
  amanrag index ./notes
  amanrag index --wait --json
  amanrag index --no-tui > index.log`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dir := ""
			if len(args) > 0 {
				dir = args[0]
			}
			return runIndex(ctx, cmd, dir, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.wait, "wait", false, "Wait for a running index to release the lock")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the run result as JSON")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Plain progress lines instead of the interactive view")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, dir string, opts indexOptions) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return amerrors.New(amerrors.ErrCodeInvalidPath, "invalid source directory", err).
				WithDetail("path", dir)
		}
		dir = abs
	}

	rc := p.runnerConfig(dir)
	if opts.wait {
		rc.LockRetry = amerrors.DefaultRetryConfig()
	}

	out := output.NewAuto(cmd.OutOrStdout())
	var runnerOpts []index.RunnerOption
	var renderer ui.Renderer
	if !opts.jsonOutput {
		renderer = ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
			ui.WithForcePlain(opts.noTUI),
			ui.WithNoColor(output.DetectNoColor()),
			ui.WithSourceDir(rc.SourceDir)))
		if err := renderer.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = renderer.Stop() }()
		runnerOpts = append(runnerOpts, index.WithProgress(renderer.Update))
	}

	result, err := index.NewRunner(runnerOpts...).Run(ctx, rc)
	if err != nil {
		return err
	}
	if renderer != nil {
		renderer.Complete(result)
		_ = renderer.Stop()
	}

	if opts.jsonOutput {
		return out.JSON(result)
	}
	printIndexResult(out, result, rc.SourceDir)
	return nil
}

func printIndexResult(out *output.Writer, result *index.Result, sourceDir string) {
	out.Success(result.String())
	out.Field("Version", shortVersion(result.Version))
	out.Field("Vocabulary", result.Vocabulary)
	out.Field("Duration", result.Duration.Round(time.Millisecond))
	for _, s := range result.Skipped {
		msg := fmt.Sprintf("skipped %s: %s", s.Name, s.Reason)
		if s.Detail != "" {
			msg += " (" + s.Detail + ")"
		}
		out.Warning(msg)
	}
	if result.Chunks == 0 {
		out.Statusf("💡", "Add text files to %s and run 'amanrag index' again", sourceDir)
	}
}
