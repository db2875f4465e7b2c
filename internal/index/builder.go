package index

import (
	"context"
	"fmt"

	"github.com/Aman-CERP/amanrag/internal/chunk"
	"github.com/Aman-CERP/amanrag/internal/store"
)

// Source is one document handed to the Builder: its name within the source
// directory and its raw text.
type Source struct {
	Name string
	Text []byte
}

// Builder turns an ordered list of sources into a document table.
type Builder struct {
	chunker chunk.Chunker
}

// NewBuilder creates a Builder. A nil chunker means paragraph chunking.
func NewBuilder(c chunk.Chunker) *Builder {
	if c == nil {
		c = chunk.NewParagraphChunker()
	}
	return &Builder{chunker: c}
}

// Build chunks every source in order and concatenates the results. The
// position of each chunk in the returned table is fixed here and becomes
// its internal identifier.
func (b *Builder) Build(ctx context.Context, sources []Source) (*store.Table, error) {
	var docs []store.Chunk
	for _, src := range sources {
		chunks, err := b.chunker.Chunk(ctx, &chunk.FileInput{Name: src.Name, Content: src.Text})
		if err != nil {
			return nil, fmt.Errorf("failed to chunk %s: %w", src.Name, err)
		}
		docs = append(docs, chunks...)
	}

	table := store.NewTable(docs)
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("built an invalid table: %w", err)
	}
	return table, nil
}
