package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Aman-CERP/amanrag/internal/search"
)

// Results prints ranked results for a human reader.
func (w *Writer) Results(query string, results []search.Result) {
	if len(results) == 0 {
		w.Statusf("🔍", "No results for %q", query)
		return
	}

	w.Statusf("🔍", "%d results for %q", len(results), query)
	w.Newline()
	for i, r := range results {
		header := fmt.Sprintf("%d. %s", i+1, r.ID)
		score := fmt.Sprintf("(%.4f)", r.Score)
		_, _ = fmt.Fprintf(w.out, "%s %s\n", w.styles.Header.Render(header), w.styles.Score.Render(score))
		for _, line := range strings.Split(r.Text, "\n") {
			_, _ = fmt.Fprintf(w.out, "   %s\n", line)
		}
		if i < len(results)-1 {
			w.Newline()
		}
	}
}

// JSON writes v as indented JSON followed by a newline.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
