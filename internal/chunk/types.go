// Package chunk splits source documents into paragraph-sized chunks.
package chunk

import (
	"context"

	"github.com/Aman-CERP/amanrag/internal/store"
)

// FileInput is one source document handed to a Chunker.
type FileInput struct {
	Name    string // Source name; becomes the chunk title and id prefix
	Content []byte // Raw UTF-8 text
}

// Chunker splits a document into chunks in text order.
type Chunker interface {
	Chunk(ctx context.Context, file *FileInput) ([]store.Chunk, error)
}
