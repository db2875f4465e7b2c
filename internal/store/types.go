package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Chunk is one independently retrievable paragraph. Its position in the
// Table is the internal identifier used for scoring; ID is display and
// citation metadata only.
type Chunk struct {
	// ID is "<source>#<ordinal>", ordinal 1-based among non-empty chunks.
	ID string `json:"id"`
	// Title is the source document's name.
	Title string `json:"title"`
	// Body is the trimmed paragraph text. Never empty.
	Body string `json:"body"`
}

// Table is the ordered document table, rebuilt wholesale by every
// ingestion run and read-only afterwards.
type Table struct {
	Docs []Chunk `json:"docs"`
}

// NewTable returns a table over docs. A nil slice becomes empty so the
// encoded form is always {"docs": []}.
func NewTable(docs []Chunk) *Table {
	if docs == nil {
		docs = []Chunk{}
	}
	return &Table{Docs: docs}
}

// Len returns the number of chunks.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Docs)
}

// Validate checks the table invariants: every chunk has a non-empty id and
// body, and ids are unique.
func (t *Table) Validate() error {
	seen := make(map[string]int, t.Len())
	for i, c := range t.Docs {
		if c.ID == "" {
			return fmt.Errorf("chunk %d has an empty id", i)
		}
		if c.Body == "" {
			return fmt.Errorf("chunk %d (%s) has an empty body", i, c.ID)
		}
		if prev, dup := seen[c.ID]; dup {
			return fmt.Errorf("duplicate id %q at positions %d and %d", c.ID, prev, i)
		}
		seen[c.ID] = i
	}
	return nil
}

// Version identifies the table's content: the hex SHA-256 of its compact
// JSON encoding. Equal tables have equal versions regardless of how they
// were stored on disk.
func (t *Table) Version() string {
	// Chunk has only string fields, so Marshal cannot fail.
	data, _ := json.Marshal(NewTable(t.docs()))
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (t *Table) docs() []Chunk {
	if t == nil {
		return nil
	}
	return t.Docs
}
