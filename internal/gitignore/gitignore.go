package gitignore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileName is the ignore file read from a source directory.
const FileName = ".amanragignore"

// Matcher holds parsed patterns and provides thread-safe matching.
type Matcher struct {
	mu    sync.RWMutex
	rules []rule
}

type rule struct {
	glob     string
	negation bool
	dirOnly  bool
}

// New creates an empty Matcher. An empty Matcher matches nothing.
func New() *Matcher {
	return &Matcher{}
}

// AddPattern adds one pattern line. Blank lines, comments and patterns that
// are not valid globs are skipped.
func (m *Matcher) AddPattern(pattern string) {
	r, ok := parse(pattern)
	if !ok {
		return
	}
	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

// AddFromFile adds every pattern in the file at path. A missing file adds
// nothing and is not an error.
func (m *Matcher) AddFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open ignore file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m.AddPattern(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read ignore file: %w", err)
	}
	return nil
}

// Len is the number of patterns held.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules)
}

// Match reports whether the entry name is ignored. The last matching
// pattern decides, so a negation can re-include an earlier match.
func (m *Matcher) Match(name string, isDir bool) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ignored := false
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		if ok, _ := filepath.Match(r.glob, name); ok {
			ignored = !r.negation
		}
	}
	return ignored
}

func parse(line string) (rule, bool) {
	// "\ " at the end keeps a trailing space
	keepSpace := strings.HasSuffix(line, `\ `)
	line = strings.TrimSpace(line)
	if keepSpace {
		line = strings.TrimSuffix(line, `\`) + " "
	}
	if line == "" || strings.HasPrefix(line, "#") {
		return rule{}, false
	}

	var r rule
	switch {
	case strings.HasPrefix(line, "!"):
		r.negation = true
		line = line[1:]
	case strings.HasPrefix(line, `\!`), strings.HasPrefix(line, `\#`):
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	line = strings.TrimPrefix(line, "/")
	if line == "" {
		return rule{}, false
	}
	if _, err := filepath.Match(line, ""); err != nil {
		return rule{}, false
	}
	r.glob = line
	return r, true
}

// ParsePatterns returns the effective pattern lines of content, without
// blanks and comments.
func ParsePatterns(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
