package search

import (
	"context"

	"github.com/Aman-CERP/amanrag/internal/store"
)

// TableSource supplies the current document table.
type TableSource interface {
	Load(ctx context.Context) (*store.Table, error)
}

// FileTableSource reads the table from disk on every Load, so a rebuilt
// table is picked up by the next query.
type FileTableSource struct {
	Path string
}

// Load reads and validates the table file.
func (s FileTableSource) Load(ctx context.Context) (*store.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return store.LoadTable(s.Path)
}

// StaticTableSource serves a table held in memory.
type StaticTableSource struct {
	Table *store.Table
}

// Load returns the held table. A nil table is treated as empty.
func (s StaticTableSource) Load(ctx context.Context) (*store.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Table == nil {
		return store.NewTable(nil), nil
	}
	return s.Table, nil
}
