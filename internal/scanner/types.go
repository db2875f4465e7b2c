package scanner

import "time"

// DefaultMaxFileSize is the default maximum source file size (10MB).
const DefaultMaxFileSize = 10 * 1024 * 1024

// sniffLen is how many leading bytes are inspected for NUL bytes.
const sniffLen = 512

// SkipReason says why a directory entry was not ingested.
type SkipReason string

const (
	SkipNotRegular SkipReason = "not a regular file"
	SkipHidden     SkipReason = "hidden"
	SkipTooLarge   SkipReason = "file too large"
	SkipBinary     SkipReason = "binary content"
	SkipNotUTF8    SkipReason = "not valid UTF-8 text"
	SkipUnreadable SkipReason = "unreadable"
	SkipIgnored    SkipReason = "matched an ignore pattern"
)

// SourceFile is a top-level regular file accepted for ingestion.
type SourceFile struct {
	Name    string    // Entry name inside the source directory; becomes the chunk title
	Path    string    // Absolute path
	Size    int64     // Size in bytes
	ModTime time.Time // Last modification time
}

// Skipped records an entry that was left out of the corpus.
type Skipped struct {
	Name   string     `json:"name"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// Options configures a scan.
type Options struct {
	// Dir is the source directory. Only its top-level entries are
	// considered; subdirectories are reported as skipped.
	Dir string

	// MaxFileSize skips larger files (0 = DefaultMaxFileSize).
	MaxFileSize int64

	// IncludeHidden accepts entries whose name starts with ".".
	IncludeHidden bool

	// NoIgnoreFile disables reading gitignore.FileName from Dir.
	NoIgnoreFile bool
}

// Result is the outcome of a scan, in ascending name order.
type Result struct {
	Files   []SourceFile
	Skipped []Skipped
}
