package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/renameio"
	"github.com/klauspost/compress/zstd"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
)

// CompressedSuffix marks a zstd-compressed table file.
const CompressedSuffix = ".zst"

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// EncodeTable renders t as indented JSON with a trailing newline. The
// encoding is deterministic, so unchanged sources produce byte-identical
// files.
func EncodeTable(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewTable(t.docs())); err != nil {
		return nil, fmt.Errorf("failed to encode table: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeTable parses and validates an encoded table. Unknown fields are
// ignored.
func DecodeTable(data []byte) (*Table, error) {
	var raw struct {
		Docs *[]Chunk `json:"docs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode table: %w", err)
	}
	if raw.Docs == nil {
		return nil, fmt.Errorf("failed to decode table: missing \"docs\" array")
	}

	t := NewTable(*raw.Docs)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// SaveTable writes t to path atomically: the content goes to a temporary
// file in the same directory, is synced, then renamed over path. Readers
// see either the old table or the new one, never a partial write.
func SaveTable(path string, t *Table) error {
	data, err := EncodeTable(t)
	if err != nil {
		return amerrors.New(amerrors.ErrCodeIndexWrite, "cannot encode document table", err)
	}

	if IsCompressed(path) {
		enc := getZstdEncoder()
		data = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return amerrors.New(amerrors.ErrCodeIndexWrite, "cannot create data directory", err).
			WithDetail("path", filepath.Dir(path))
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return amerrors.New(amerrors.ErrCodeIndexWrite, "cannot write document table", err).
			WithDetail("path", path)
	}
	return nil
}

// LoadTable reads the table at path. A missing file is ErrCodeIndexNotFound;
// anything unreadable, undecodable or violating table invariants is
// ErrCodeCorruptIndex. Neither is ever reported as an empty table.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, amerrors.New(amerrors.ErrCodeIndexNotFound, "no document table found", err).
				WithDetail("path", path).
				WithSuggestion("Run 'amanrag index' first")
		}
		return nil, amerrors.New(amerrors.ErrCodeCorruptIndex, "cannot read document table", err).
			WithDetail("path", path)
	}

	if IsCompressed(path) {
		dec := getZstdDecoder()
		data, err = dec.DecodeAll(data, nil)
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, corrupt(path, err)
		}
	}

	t, err := DecodeTable(data)
	if err != nil {
		return nil, corrupt(path, err)
	}
	return t, nil
}

// IsCompressed reports whether path names a zstd table.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, CompressedSuffix)
}

func corrupt(path string, err error) error {
	return amerrors.New(amerrors.ErrCodeCorruptIndex, "document table is corrupt", err).
		WithDetail("path", path).
		WithSuggestion("Rebuild it with 'amanrag index'")
}
