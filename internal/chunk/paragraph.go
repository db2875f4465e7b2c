package chunk

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Aman-CERP/amanrag/internal/store"
)

// blankLines matches a paragraph boundary: a line break followed by one or
// more blank lines. Lines holding only spaces or tabs count as blank.
var blankLines = regexp.MustCompile(`\n(?:[ \t]*\n)+`)

// ParagraphChunker splits text on blank lines. It is stateless and safe for
// concurrent use.
type ParagraphChunker struct{}

// NewParagraphChunker creates a paragraph chunker.
func NewParagraphChunker() *ParagraphChunker {
	return &ParagraphChunker{}
}

// Chunk splits file into paragraphs. See Split.
func (c *ParagraphChunker) Chunk(ctx context.Context, file *FileInput) ([]store.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Split(file.Name, string(file.Content)), nil
}

// Split cuts text into trimmed, non-empty paragraphs and numbers them
// "<source>#1", "<source>#2", ... in text order. Paragraphs that are empty
// after trimming get no number. Any run of blank lines is a single
// boundary, and CRLF line endings are treated as LF.
//
// Example: "Intro.\n\nDetails.\n\n\nFinal." from "doc.txt" yields
// doc.txt#1 "Intro.", doc.txt#2 "Details.", doc.txt#3 "Final.".
func Split(source, text string) []store.Chunk {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var chunks []store.Chunk
	for _, part := range blankLines.Split(text, -1) {
		body := strings.TrimSpace(part)
		if body == "" {
			continue
		}
		chunks = append(chunks, store.Chunk{
			ID:    ChunkID(source, len(chunks)+1),
			Title: source,
			Body:  body,
		})
	}
	return chunks
}

// ChunkID formats the id of the n-th (1-based) chunk of source.
func ChunkID(source string, n int) string {
	return fmt.Sprintf("%s#%d", source, n)
}

var _ Chunker = (*ParagraphChunker)(nil)
