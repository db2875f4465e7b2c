package index

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/amanrag/internal/chunk"
	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/scanner"
	"github.com/Aman-CERP/amanrag/internal/store"
)

// Stage names the phase reported to a ProgressFunc.
type Stage string

const (
	StageScan  Stage = "scan"
	StageRead  Stage = "read"
	StageBuild Stage = "build"
	StageWrite Stage = "write"
)

// ProgressFunc receives progress updates. Calls are serialized.
type ProgressFunc func(stage Stage, current, total int, name string)

// RunnerConfig configures one ingestion run.
type RunnerConfig struct {
	// SourceDir is the directory of documents to ingest.
	SourceDir string

	// TablePath is where the document table is written.
	TablePath string

	// LockPath is the single-writer lock file.
	LockPath string

	// CreateSourceDir creates a missing SourceDir instead of failing.
	CreateSourceDir bool

	MaxFileSize   int64
	IncludeHidden bool

	// Workers bounds concurrent file reads (0 = NumCPU).
	Workers int

	// LockRetry controls waiting for another run to release the lock. The
	// zero value tries once.
	LockRetry amerrors.RetryConfig
}

// Result reports the outcome of a successful run.
type Result struct {
	RunID      string            `json:"run_id"`
	Files      int               `json:"files"`
	Chunks     int               `json:"chunks"`
	Skipped    []scanner.Skipped `json:"skipped"`
	TablePath  string            `json:"table_path"`
	Version    string            `json:"version"`
	Vocabulary int               `json:"vocabulary"`
	Duration   time.Duration     `json:"duration"`
}

// Runner executes ingestion runs: scan, read, chunk, persist.
type Runner struct {
	builder   *Builder
	tokenizer store.Tokenizer
	progress  ProgressFunc
	progMu    sync.Mutex
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithChunker replaces the paragraph chunker.
func WithChunker(c chunk.Chunker) RunnerOption {
	return func(r *Runner) {
		r.builder = NewBuilder(c)
	}
}

// WithTokenizer sets the tokenizer used to report vocabulary size. It must
// match the tokenizer used by retrieval.
func WithTokenizer(t store.Tokenizer) RunnerOption {
	return func(r *Runner) {
		r.tokenizer = t
	}
}

// WithProgress sets a progress callback.
func WithProgress(fn ProgressFunc) RunnerOption {
	return func(r *Runner) {
		r.progress = fn
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		builder:   NewBuilder(nil),
		tokenizer: store.DefaultTokenizer,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run rebuilds the document table from cfg.SourceDir. Entries that cannot
// be ingested are skipped and reported in Result.Skipped; they never fail
// the run. The table on disk is replaced atomically, and only after the
// whole corpus has been built.
func (r *Runner) Run(ctx context.Context, cfg RunnerConfig) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := slog.With(slog.String("run_id", runID))

	log.Info("ingest_started",
		slog.String("source_dir", cfg.SourceDir),
		slog.String("table", cfg.TablePath))

	if cfg.CreateSourceDir {
		if err := os.MkdirAll(cfg.SourceDir, 0o755); err != nil {
			return nil, amerrors.New(amerrors.ErrCodeSourceUnreadable, "cannot create source directory", err).
				WithDetail("path", cfg.SourceDir)
		}
	}

	lock := store.NewFileLock(cfg.LockPath)
	if err := r.acquire(ctx, lock, cfg.LockRetry); err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warn("ingest_unlock_failed", slog.String("error", err.Error()))
		}
	}()

	scanned, err := scanner.New(scanner.Options{
		Dir:           cfg.SourceDir,
		MaxFileSize:   cfg.MaxFileSize,
		IncludeHidden: cfg.IncludeHidden,
	}).Scan(ctx)
	if err != nil {
		return nil, err
	}
	r.report(StageScan, len(scanned.Files), len(scanned.Files), "")

	sources, readSkips, err := r.readSources(ctx, scanned.Files, cfg.Workers)
	if err != nil {
		return nil, err
	}

	skipped := append(slices.Clone(scanned.Skipped), readSkips...)
	slices.SortFunc(skipped, func(a, b scanner.Skipped) int {
		return strings.Compare(a.Name, b.Name)
	})
	for _, s := range skipped {
		log.Warn("source_skipped",
			slog.String("name", s.Name),
			slog.String("reason", string(s.Reason)),
			slog.String("detail", s.Detail))
	}

	r.report(StageBuild, 0, 1, "")
	table, err := r.builder.Build(ctx, sources)
	if err != nil {
		return nil, amerrors.New(amerrors.ErrCodeIngestFailed, "cannot build document table", err)
	}
	stats := DeriveStatistics(table, r.tokenizer)
	r.report(StageBuild, 1, 1, "")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.report(StageWrite, 0, 1, cfg.TablePath)
	if err := store.SaveTable(cfg.TablePath, table); err != nil {
		return nil, err
	}
	r.report(StageWrite, 1, 1, cfg.TablePath)

	result := &Result{
		RunID:      runID,
		Files:      len(sources),
		Chunks:     table.Len(),
		Skipped:    skipped,
		TablePath:  cfg.TablePath,
		Version:    table.Version(),
		Vocabulary: stats.Vocabulary(),
		Duration:   time.Since(start),
	}

	log.Info("ingest_completed",
		slog.Int("files", result.Files),
		slog.Int("chunks", result.Chunks),
		slog.Int("skipped", len(result.Skipped)),
		slog.Int("vocabulary", result.Vocabulary),
		slog.String("version", result.Version[:12]),
		slog.Duration("duration", result.Duration))

	return result, nil
}

func (r *Runner) acquire(ctx context.Context, lock *store.FileLock, retry amerrors.RetryConfig) error {
	return amerrors.Retry(ctx, retry, func() error {
		ok, err := lock.TryLock()
		if err != nil {
			return amerrors.New(amerrors.ErrCodeIndexWrite, "cannot take the ingestion lock", err).
				WithDetail("path", lock.Path())
		}
		if !ok {
			return amerrors.New(amerrors.ErrCodeIndexLocked, "another ingestion run is in progress", nil).
				WithDetail("path", lock.Path()).
				WithSuggestion("Wait for it to finish, or remove the lock file if no run is active")
		}
		return nil
	})
}

// readSources reads files concurrently, keeping the scan order in the
// returned sources. Unreadable and non-UTF-8 files are skipped.
func (r *Runner) readSources(ctx context.Context, files []scanner.SourceFile, workers int) ([]Source, []scanner.Skipped, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	texts := make([][]byte, len(files))
	skips := make([]*scanner.Skipped, len(files))
	var done int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, skip := readSource(f)
			texts[i], skips[i] = text, skip

			r.progMu.Lock()
			done++
			current := done
			r.progMu.Unlock()
			r.report(StageRead, current, len(files), f.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var sources []Source
	var skipped []scanner.Skipped
	for i, f := range files {
		if skips[i] != nil {
			skipped = append(skipped, *skips[i])
			continue
		}
		sources = append(sources, Source{Name: f.Name, Text: texts[i]})
	}
	return sources, skipped, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readSource(f scanner.SourceFile) ([]byte, *scanner.Skipped) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, &scanner.Skipped{Name: f.Name, Reason: scanner.SkipUnreadable, Detail: err.Error()}
	}
	if scanner.IsBinary(data) {
		return nil, &scanner.Skipped{Name: f.Name, Reason: scanner.SkipBinary}
	}
	if !utf8.Valid(data) {
		return nil, &scanner.Skipped{Name: f.Name, Reason: scanner.SkipNotUTF8}
	}
	return bytes.TrimPrefix(data, utf8BOM), nil
}

func (r *Runner) report(stage Stage, current, total int, name string) {
	if r.progress == nil {
		return
	}
	r.progMu.Lock()
	defer r.progMu.Unlock()
	r.progress(stage, current, total, name)
}

// String summarizes the result for logs and the CLI.
func (res *Result) String() string {
	return fmt.Sprintf("Indexed %d chunks from %d files into %s (%d skipped)",
		res.Chunks, res.Files, res.TablePath, len(res.Skipped))
}
