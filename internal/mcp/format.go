package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/amanrag/internal/search"
)

// FormatResults formats ranked results as markdown.
func FormatResults(query string, results []search.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Results for \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Found %d result", len(results))
	if len(results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range results {
		fmt.Fprintf(&sb, "### %d. %s\n", i+1, r.ID)
		fmt.Fprintf(&sb, "**Source:** `%s` | **Score:** %.4f\n\n", r.Title, r.Score)
		sb.WriteString(quote(r.Text))
		sb.WriteString("\n\n")
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// FormatStatus formats index status as markdown.
func FormatStatus(s *IndexStatusOutput) string {
	if !s.Ready {
		md := fmt.Sprintf("## Index Not Ready\n\n%s\n", s.Message)
		if ix := s.Indexing; ix != nil {
			md += fmt.Sprintf("\n- **Indexing:** %s, stage %s (%d/%d, %.0f%%)\n",
				ix.Status, ix.Stage, ix.Current, ix.Total, ix.ProgressPct)
			if ix.ErrorMessage != "" {
				md += fmt.Sprintf("- **Error:** %s\n", ix.ErrorMessage)
			}
		}
		return md
	}
	var sb strings.Builder
	sb.WriteString("## Index Status\n\n")
	fmt.Fprintf(&sb, "- **Table:** `%s`\n", s.TablePath)
	fmt.Fprintf(&sb, "- **Chunks:** %d\n", s.Chunks)
	fmt.Fprintf(&sb, "- **Vocabulary:** %d\n", s.Vocabulary)
	fmt.Fprintf(&sb, "- **Version:** `%s`\n", shortVersion(s.Version))

	if q := s.Queries; q != nil {
		sb.WriteString("\n### Queries\n\n")
		fmt.Fprintf(&sb, "- **Served:** %d (%d repeated)\n", q.Total, q.ExactRepeats)
		fmt.Fprintf(&sb, "- **Zero results:** %d (%.1f%%)\n", q.ZeroResults, q.ZeroResultPercent)
		if len(q.TopTerms) > 0 {
			fmt.Fprintf(&sb, "- **Top terms:** %s\n", strings.Join(q.TopTerms, ", "))
		}
		for _, z := range q.RecentZeroResults {
			fmt.Fprintf(&sb, "  - no match: %q\n", z)
		}
	}
	return sb.String()
}

func quote(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}

func shortVersion(v string) string {
	if len(v) > 12 {
		return v[:12]
	}
	return v
}
