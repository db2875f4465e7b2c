package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
)

func sampleTable() *Table {
	return NewTable([]Chunk{
		{ID: "a.txt#1", Title: "a.txt", Body: "Rust ownership model."},
		{ID: "a.txt#2", Title: "a.txt", Body: "Garbage collection notes."},
		{ID: "b.txt#1", Title: "b.txt", Body: "Go <concurrency> & model."},
	})
}

func TestEncodeTable_Format(t *testing.T) {
	data, err := EncodeTable(NewTable([]Chunk{{ID: "d.txt#1", Title: "d.txt", Body: "x < y"}}))

	require.NoError(t, err)
	expected := "{\n" +
		"  \"docs\": [\n" +
		"    {\n" +
		"      \"id\": \"d.txt#1\",\n" +
		"      \"title\": \"d.txt\",\n" +
		"      \"body\": \"x < y\"\n" +
		"    }\n" +
		"  ]\n" +
		"}\n"
	assert.Equal(t, expected, string(data))
}

func TestEncodeTable_EmptyTable(t *testing.T) {
	data, err := EncodeTable(NewTable(nil))

	require.NoError(t, err)
	assert.Equal(t, "{\n  \"docs\": []\n}\n", string(data))
}

func TestSaveLoadTable(t *testing.T) {
	for _, name := range []string{"index.json", "index.json.zst"} {
		t.Run(name, func(t *testing.T) {
			// Given: a table saved to a nested data dir
			path := filepath.Join(t.TempDir(), "data", name)
			want := sampleTable()

			// When
			require.NoError(t, SaveTable(path, want))
			got, err := LoadTable(path)

			// Then
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Equal(t, want.Version(), got.Version())
		})
	}
}

func TestSaveTable_CompressedIsNotPlainJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json.zst")
	require.NoError(t, SaveTable(path, sampleTable()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, byte('{'), data[0])
}

func TestSaveTable_ReplacesExistingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, SaveTable(path, sampleTable()))

	replacement := NewTable([]Chunk{{ID: "c.txt#1", Title: "c.txt", Body: "new"}})
	require.NoError(t, SaveTable(path, replacement))

	got, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, replacement, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestSaveTable_Deterministic(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "one.json")
	p2 := filepath.Join(dir, "two.json")
	require.NoError(t, SaveTable(p1, sampleTable()))
	require.NoError(t, SaveTable(p2, sampleTable()))

	b1, err := os.ReadFile(p1)
	require.NoError(t, err)
	b2, err := os.ReadFile(p2)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestLoadTable_Missing(t *testing.T) {
	_, err := LoadTable(filepath.Join(t.TempDir(), "nope", "index.json"))

	require.Error(t, err)
	assert.Equal(t, amerrors.ErrCodeIndexNotFound, amerrors.GetCode(err))
}

func TestLoadTable_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"truncated json", "index.json", `{"docs": [{"id": "a#1"`},
		{"not an object", "index.json", `[1, 2, 3]`},
		{"missing docs", "index.json", `{"documents": []}`},
		{"null docs", "index.json", `{"docs": null}`},
		{"empty file", "index.json", ``},
		{"empty body", "index.json", `{"docs":[{"id":"a#1","title":"a","body":""}]}`},
		{"duplicate id", "index.json", `{"docs":[{"id":"a#1","title":"a","body":"x"},{"id":"a#1","title":"a","body":"y"}]}`},
		{"bad zstd", "index.json.zst", `{"docs": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			table, err := LoadTable(path)

			require.Error(t, err)
			assert.Nil(t, table)
			assert.Equal(t, amerrors.ErrCodeCorruptIndex, amerrors.GetCode(err))
			assert.True(t, amerrors.IsFatal(err))
		})
	}
}

func TestDecodeTable_IgnoresUnknownFields(t *testing.T) {
	data := []byte(`{"version": 2, "docs":[{"id":"a#1","title":"a","body":"x","lang":"en"}]}`)

	table, err := DecodeTable(data)

	require.NoError(t, err)
	assert.Equal(t, []Chunk{{ID: "a#1", Title: "a", Body: "x"}}, table.Docs)
}

func TestDecodeTable_EmptyDocs(t *testing.T) {
	table, err := DecodeTable([]byte(`{"docs": []}`))

	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}
