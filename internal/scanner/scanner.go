// Package scanner enumerates the documents in a source directory.
package scanner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/gitignore"
)

// Scanner lists ingestible files in a source directory.
type Scanner struct {
	opts Options
}

// New creates a Scanner for opts.
func New(opts Options) *Scanner {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	return &Scanner{opts: opts}
}

// Scan lists the top-level entries of the source directory in name order
// and sorts them into accepted files and skipped entries. Patterns in the
// directory's ignore file exclude matching entries. A problem with
// one entry never fails the scan; only an unusable source directory does.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	absDir, err := filepath.Abs(s.opts.Dir)
	if err != nil {
		return nil, amerrors.New(amerrors.ErrCodeInvalidPath, "invalid source directory", err).
			WithDetail("path", s.opts.Dir)
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, amerrors.New(amerrors.ErrCodeSourceNotFound, "source directory does not exist", err).
				WithDetail("path", absDir)
		}
		return nil, amerrors.New(amerrors.ErrCodeSourceUnreadable, "cannot list source directory", err).
			WithDetail("path", absDir)
	}

	ignore := gitignore.New()
	if !s.opts.NoIgnoreFile {
		if err := ignore.AddFromFile(filepath.Join(absDir, gitignore.FileName)); err != nil {
			return nil, amerrors.New(amerrors.ErrCodeSourceUnreadable, "cannot read ignore file", err).
				WithDetail("path", filepath.Join(absDir, gitignore.FileName))
		}
	}

	result := &Result{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := entry.Name()
		file, skip := s.inspect(absDir, name, ignore)
		if skip != nil {
			slog.Debug("source_skipped",
				slog.String("name", name),
				slog.String("reason", string(skip.Reason)))
			result.Skipped = append(result.Skipped, *skip)
			continue
		}
		result.Files = append(result.Files, *file)
	}

	return result, nil
}

// inspect classifies one directory entry. Symlinks are followed, matching
// a plain stat of the path.
func (s *Scanner) inspect(dir, name string, ignore *gitignore.Matcher) (*SourceFile, *Skipped) {
	if !s.opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return nil, &Skipped{Name: name, Reason: SkipHidden}
	}
	if name == gitignore.FileName && !s.opts.NoIgnoreFile {
		return nil, &Skipped{Name: name, Reason: SkipIgnored}
	}

	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return nil, &Skipped{Name: name, Reason: SkipUnreadable, Detail: err.Error()}
	}
	if ignore.Match(name, info.IsDir()) {
		return nil, &Skipped{Name: name, Reason: SkipIgnored}
	}
	if !info.Mode().IsRegular() {
		return nil, &Skipped{Name: name, Reason: SkipNotRegular, Detail: info.Mode().Type().String()}
	}
	if info.Size() > s.opts.MaxFileSize {
		return nil, &Skipped{Name: name, Reason: SkipTooLarge}
	}

	binary, err := isBinaryFile(path)
	if err != nil {
		return nil, &Skipped{Name: name, Reason: SkipUnreadable, Detail: err.Error()}
	}
	if binary {
		return nil, &Skipped{Name: name, Reason: SkipBinary}
	}

	return &SourceFile{
		Name:    name,
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// isBinaryFile reports whether the first bytes of path contain a NUL.
func isBinaryFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false, err
	}
	return IsBinary(buf[:n]), nil
}

// IsBinary reports whether content looks binary: a NUL byte within its
// first 512 bytes.
func IsBinary(content []byte) bool {
	if len(content) > sniffLen {
		content = content[:sniffLen]
	}
	return bytes.IndexByte(content, 0) >= 0
}
