package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanrag/internal/output"
)

// statusInfo is what `amanrag status --json` prints.
type statusInfo struct {
	Root           string  `json:"root"`
	SourceDir      string  `json:"source_dir"`
	TablePath      string  `json:"table_path"`
	Ready          bool    `json:"ready"`
	Chunks         int     `json:"chunks"`
	Vocabulary     int     `json:"vocabulary"`
	Version        string  `json:"version,omitempty"`
	AvgTitleLength float64 `json:"avg_title_length"`
	AvgBodyLength  float64 `json:"avg_body_length"`
	Error          string  `json:"error,omitempty"`
}

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the document table status",
		Long: `Display information about the current document table:
  - Source directory and table location
  - Number of chunks and distinct words
  - Average title and body length in words
  - Table version (content hash)`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	info := statusInfo{
		Root:      p.root,
		SourceDir: p.cfg.SourceDir(p.root),
		TablePath: p.tablePath(),
	}

	engine, err := p.engine()
	if err != nil {
		return err
	}
	stats, statsErr := engine.Stats(ctx)
	if statsErr == nil {
		info.Ready = true
		info.Chunks = stats.Docs
		info.Vocabulary = stats.Vocabulary
		info.Version = stats.Version
		info.AvgTitleLength = stats.AvgTitleLength
		info.AvgBodyLength = stats.AvgBodyLength
	} else {
		info.Error = statsErr.Error()
	}

	out := output.NewAuto(cmd.OutOrStdout())
	if jsonOutput {
		if err := out.JSON(info); err != nil {
			return err
		}
		return statsErr
	}

	out.Statusf("📁", "Project: %s", info.Root)
	out.Field("Sources", info.SourceDir)
	out.Field("Table", info.TablePath)
	if statsErr != nil {
		out.Newline()
		return statsErr
	}
	out.Field("Chunks", info.Chunks)
	out.Field("Vocabulary", info.Vocabulary)
	out.Field("Avg title", formatAvg(info.AvgTitleLength))
	out.Field("Avg body", formatAvg(info.AvgBodyLength))
	out.Field("Version", shortVersion(info.Version))
	out.Newline()
	out.Success("Ready")
	return nil
}

func formatAvg(v float64) string {
	return fmt.Sprintf("%.2f words", v)
}

func shortVersion(v string) string {
	if len(v) > 12 {
		return v[:12]
	}
	return v
}
