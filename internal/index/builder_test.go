package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanrag/internal/chunk"
	"github.com/Aman-CERP/amanrag/internal/store"
)

func TestBuilder_Build_ConcatenatesInOrder(t *testing.T) {
	// Given: two sources
	sources := []Source{
		{Name: "a.txt", Text: []byte("Rust ownership model.\n\nGarbage collection notes.")},
		{Name: "b.txt", Text: []byte("Go concurrency model.\n\nOwnership is not a Go concept.")},
	}

	// When
	table, err := NewBuilder(nil).Build(context.Background(), sources)

	// Then: chunks keep source order and per-source ordinals
	require.NoError(t, err)
	assert.Equal(t, []store.Chunk{
		{ID: "a.txt#1", Title: "a.txt", Body: "Rust ownership model."},
		{ID: "a.txt#2", Title: "a.txt", Body: "Garbage collection notes."},
		{ID: "b.txt#1", Title: "b.txt", Body: "Go concurrency model."},
		{ID: "b.txt#2", Title: "b.txt", Body: "Ownership is not a Go concept."},
	}, table.Docs)
}

func TestBuilder_Build_EmptyCorpus(t *testing.T) {
	table, err := NewBuilder(nil).Build(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.NotNil(t, table.Docs)
}

func TestBuilder_Build_SourceWithoutParagraphs(t *testing.T) {
	table, err := NewBuilder(nil).Build(context.Background(), []Source{
		{Name: "blank.txt", Text: []byte("\n\n  \n")},
		{Name: "one.txt", Text: []byte("only paragraph")},
	})

	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "one.txt#1", table.Docs[0].ID)
}

type failingChunker struct{}

func (failingChunker) Chunk(context.Context, *chunk.FileInput) ([]store.Chunk, error) {
	return nil, errors.New("boom")
}

type duplicatingChunker struct{}

func (duplicatingChunker) Chunk(_ context.Context, f *chunk.FileInput) ([]store.Chunk, error) {
	c := store.Chunk{ID: "same", Title: f.Name, Body: "x"}
	return []store.Chunk{c, c}, nil
}

func TestBuilder_Build_Errors(t *testing.T) {
	src := []Source{{Name: "a.txt", Text: []byte("x")}}

	_, err := NewBuilder(failingChunker{}).Build(context.Background(), src)
	assert.ErrorContains(t, err, "failed to chunk a.txt")

	_, err = NewBuilder(duplicatingChunker{}).Build(context.Background(), src)
	assert.ErrorContains(t, err, "duplicate id")
}
