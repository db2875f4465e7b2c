// Package async runs ingestion in the background and tracks its progress,
// so a server can start answering before the first table exists.
package async

import (
	"sync"
	"time"

	"github.com/Aman-CERP/amanrag/internal/index"
)

// IndexingStatus represents the overall indexing state.
type IndexingStatus string

const (
	// StatusIndexing indicates a run is in progress.
	StatusIndexing IndexingStatus = "indexing"
	// StatusReady indicates the run completed and the table is in place.
	StatusReady IndexingStatus = "ready"
	// StatusError indicates the run failed.
	StatusError IndexingStatus = "error"
)

// IndexProgressSnapshot is an immutable snapshot of indexing progress.
type IndexProgressSnapshot struct {
	Status         string  `json:"status"`
	Stage          string  `json:"stage"`
	Current        int     `json:"current"`
	Total          int     `json:"total"`
	Chunks         int     `json:"chunks"`
	ProgressPct    float64 `json:"progress_pct"`
	ElapsedSeconds int     `json:"elapsed_seconds"`
	ErrorMessage   string  `json:"error_message,omitempty"`
}

// IndexProgress provides thread-safe tracking of one ingestion run.
type IndexProgress struct {
	mu sync.RWMutex

	status       IndexingStatus
	stage        index.Stage
	current      int
	total        int
	chunks       int
	startTime    time.Time
	errorMessage string
}

// NewIndexProgress creates a tracker in the indexing state.
func NewIndexProgress() *IndexProgress {
	return &IndexProgress{
		status:    StatusIndexing,
		stage:     index.StageScan,
		startTime: time.Now(),
	}
}

// Report records a progress update. Its signature matches
// index.ProgressFunc, so it can be handed to index.WithProgress.
func (p *IndexProgress) Report(stage index.Stage, current, total int, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = stage
	p.current = current
	p.total = total
}

// SetChunks records the chunk count of the finished table.
func (p *IndexProgress) SetChunks(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.chunks = n
}

// SetError marks the run as failed.
func (p *IndexProgress) SetError(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusError
	p.errorMessage = message
}

// SetReady marks the run as complete.
func (p *IndexProgress) SetReady() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusReady
}

// IsIndexing returns true while the run is in progress.
func (p *IndexProgress) IsIndexing() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.status == StatusIndexing
}

// Snapshot returns an immutable copy of the current progress state.
func (p *IndexProgress) Snapshot() IndexProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var pct float64
	if p.total > 0 {
		pct = float64(p.current) / float64(p.total) * 100.0
	}

	return IndexProgressSnapshot{
		Status:         string(p.status),
		Stage:          string(p.stage),
		Current:        p.current,
		Total:          p.total,
		Chunks:         p.chunks,
		ProgressPct:    pct,
		ElapsedSeconds: int(time.Since(p.startTime).Seconds()),
		ErrorMessage:   p.errorMessage,
	}
}
