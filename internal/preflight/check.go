package preflight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/store"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the status in lower case for JSON output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Paths are the project locations the checks inspect.
type Paths struct {
	SourceDir string
	DataDir   string
	TablePath string
	LockPath  string
}

// Checker performs preflight validation checks.
type Checker struct {
	verbose bool
	output  io.Writer
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose prints check details.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check against p and returns the results in a fixed
// order. It stops early only when ctx is cancelled.
func (c *Checker) RunAll(ctx context.Context, p Paths) []CheckResult {
	checks := []func() CheckResult{
		func() CheckResult { return c.CheckSourceDir(p.SourceDir) },
		func() CheckResult { return c.CheckWritePermissions(p.DataDir) },
		func() CheckResult { return c.CheckDiskSpace(p.DataDir) },
		c.CheckFileDescriptors,
		func() CheckResult { return c.CheckTable(p.TablePath) },
		func() CheckResult { return c.CheckLock(p.LockPath) },
	}

	results := make([]CheckResult, 0, len(checks))
	for _, check := range checks {
		if ctx.Err() != nil {
			break
		}
		results = append(results, check())
	}
	return results
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns a summary status string for the results.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	hasCriticalFailure := false

	for _, r := range results {
		if r.IsCritical() {
			hasCriticalFailure = true
		}
		if r.Status == StatusWarn || (r.Status == StatusFail && !r.Required) {
			hasWarnings = true
		}
	}

	if hasCriticalFailure {
		return "failed"
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults prints check results to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "amanrag system check")
	_, _ = fmt.Fprintln(c.output, "====================")
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "      %s\n", r.Details)
		}
	}

	_, _ = fmt.Fprintln(c.output)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(c.SummaryStatus(results)))

	var warnings, errs []string
	for _, r := range results {
		if r.IsCritical() {
			errs = append(errs, r.Name+": "+r.Message)
		} else if r.Status != StatusPass {
			warnings = append(warnings, r.Name+": "+r.Message)
		}
	}

	if len(errs) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d error(s):\n", len(errs))
		for _, e := range errs {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", e)
		}
	}

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d warning(s):\n", len(warnings))
		for _, w := range warnings {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", w)
		}
	}
}

// CheckSourceDir checks that the source directory can be listed. A missing
// directory is only a warning because ingestion creates it.
func (c *Checker) CheckSourceDir(dir string) CheckResult {
	result := CheckResult{
		Name:     "source_dir",
		Required: true,
	}

	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		result.Status = StatusWarn
		result.Message = "missing, created on first index"
		result.Details = dir
	case err != nil:
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot list: %v", err)
	default:
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%d entries", len(entries))
		result.Details = dir
	}
	return result
}

// CheckWritePermissions checks that a file can be created in dir, or in its
// nearest existing parent when dir does not exist yet.
func (c *Checker) CheckWritePermissions(dir string) CheckResult {
	result := CheckResult{
		Name:     "write_permissions",
		Required: true,
	}

	target := existingParent(dir)
	f, err := os.CreateTemp(target, ".amanrag-preflight-*")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(f.Name())

	result.Status = StatusPass
	result.Message = "OK"
	result.Details = target
	return result
}

// CheckTable loads the document table. A table that has not been built is
// a warning; one that cannot be read or decoded fails.
func (c *Checker) CheckTable(path string) CheckResult {
	result := CheckResult{
		Name:     "document_table",
		Required: true,
	}

	table, err := store.LoadTable(path)
	switch {
	case amerrors.HasCode(err, amerrors.ErrCodeIndexNotFound):
		result.Status = StatusWarn
		result.Message = "not built yet"
		result.Details = "Run 'amanrag index' to build it"
	case err != nil:
		result.Status = StatusFail
		result.Message = err.Error()
		result.Details = "Run 'amanrag index' to rebuild it"
	default:
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%d chunks, version %s", table.Len(), table.Version()[:12])
		result.Details = path
	}
	return result
}

// CheckLock reports whether an ingestion run holds the lock. The lock file
// is never created by this check.
func (c *Checker) CheckLock(path string) CheckResult {
	result := CheckResult{
		Name: "ingest_lock",
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		result.Status = StatusPass
		result.Message = "free"
		return result
	}

	lock := store.NewFileLock(path)
	ok, err := lock.TryLock()
	switch {
	case err != nil:
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot inspect: %v", err)
	case !ok:
		result.Status = StatusWarn
		result.Message = "held by a running ingestion"
		result.Details = path
	default:
		_ = lock.Unlock()
		result.Status = StatusPass
		result.Message = "free"
	}
	return result
}

// existingParent walks up from path to the first directory that exists.
func existingParent(path string) string {
	dir := filepath.Clean(path)
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
