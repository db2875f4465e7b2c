package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanrag/internal/output"
	"github.com/Aman-CERP/amanrag/internal/validation"
)

func newValidateCmd() *cobra.Command {
	var (
		jsonOutput bool
		topK       int
	)

	cmd := &cobra.Command{
		Use:   "validate <queries.yaml>",
		Short: "Check ranking quality against queries with known answers",
		Long: `Run every query in a YAML file against the current document table and
check that the expected chunks are ranked.

  tier1     queries that must find one of their expected chunks
  tier2     queries that are reported but may miss
  negative  queries that must not rank any of their expected chunks

Expected entries are chunk ids (a.txt#1) or file names (a.txt). The
command fails when a tier 1 or negative query fails.`,
		Example: `  amanrag validate queries.yaml
  amanrag validate queries.yaml --top-k 5 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), cmd, args[0], topK, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&topK, "top-k", validation.DefaultTopK, "Chunks inspected per query without its own top_k")

	return cmd
}

func runValidate(ctx context.Context, cmd *cobra.Command, path string, topK int, jsonOutput bool) error {
	queries, err := validation.LoadQueries(path)
	if err != nil {
		return err
	}

	p, err := loadProject()
	if err != nil {
		return err
	}
	engine, err := p.engine()
	if err != nil {
		return err
	}
	if _, err := engine.Stats(ctx); err != nil {
		return err
	}

	report := validation.NewValidator(engine, validation.WithTopK(topK)).RunAll(ctx, queries)

	out := output.NewAuto(cmd.OutOrStdout())
	if jsonOutput {
		if err := out.JSON(report); err != nil {
			return err
		}
	} else {
		printValidationReport(out, report)
	}

	if !report.Passed() {
		return fmt.Errorf("validation failed: %d/%d tier 1 and %d/%d negative queries passed",
			report.Tier1Pass, report.Tier1Total, report.NegPass, report.NegTotal)
	}
	return nil
}

func printValidationReport(out *output.Writer, report *validation.Report) {
	sections := []struct {
		title   string
		results []validation.TestResult
		pass    int
		total   int
	}{
		{"Tier 1", report.Tier1, report.Tier1Pass, report.Tier1Total},
		{"Tier 2", report.Tier2, report.Tier2Pass, report.Tier2Total},
		{"Negative", report.Negative, report.NegPass, report.NegTotal},
	}

	for _, sec := range sections {
		if sec.total == 0 {
			continue
		}
		out.Statusf("", "%s: %d/%d passed", sec.title, sec.pass, sec.total)
		for _, r := range sec.results {
			line := fmt.Sprintf("%s %s", r.Spec.ID, r.Spec.Query)
			switch {
			case r.Error != "":
				out.Errorf("%s: %s", line, r.Error)
			case r.Passed && r.MatchedAt >= 0:
				out.Successf("%s (rank %d)", line, r.MatchedAt+1)
			case r.Passed:
				out.Success(line)
			default:
				out.Warningf("%s: got [%s]", line, strings.Join(r.TopResults, ", "))
			}
		}
		out.Newline()
	}

	if report.Passed() {
		out.Success("Validation passed")
	}
}
