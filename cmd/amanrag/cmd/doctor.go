package cmd

import (
	"github.com/spf13/cobra"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/output"
	"github.com/Aman-CERP/amanrag/internal/preflight"
)

// doctorReport is what `amanrag doctor --json` prints.
type doctorReport struct {
	Status   string                  `json:"status"`
	Checks   []preflight.CheckResult `json:"checks"`
	Warnings []string                `json:"warnings,omitempty"`
	Errors   []string                `json:"errors,omitempty"`
}

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment and diagnose issues",
		Long: `Run diagnostics for the current project.

Checks:
  - Source directory (present and listable)
  - Write permissions in the data directory
  - Disk space (100MB minimum)
  - Open file limit
  - Document table (built and loadable)
  - Ingestion lock (free or held)

A missing source directory or table is a warning: 'amanrag index'
creates both.`,
		Example: `  # Run diagnostics
  amanrag doctor

  # Show details for each check
  amanrag doctor --verbose

  # JSON output for scripting
  amanrag doctor --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, verbose, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show details for each check")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runDoctor(cmd *cobra.Command, verbose, jsonOutput bool) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	checker := preflight.New(
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	)
	results := checker.RunAll(cmd.Context(), preflight.Paths{
		SourceDir: p.cfg.SourceDir(p.root),
		DataDir:   p.cfg.DataDir(p.root),
		TablePath: p.tablePath(),
		LockPath:  p.cfg.LockPath(p.root),
	})

	if jsonOutput {
		report := doctorReport{Status: checker.SummaryStatus(results), Checks: results}
		for _, r := range results {
			if r.IsCritical() {
				report.Errors = append(report.Errors, r.Name+": "+r.Message)
			} else if r.Status != preflight.StatusPass {
				report.Warnings = append(report.Warnings, r.Name+": "+r.Message)
			}
		}
		if err := output.New(cmd.OutOrStdout()).JSON(report); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return amerrors.New(amerrors.ErrCodeInternal, "system check failed", nil).
			WithSuggestion("Fix the failed checks listed above")
	}
	return nil
}
