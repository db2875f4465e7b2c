package ui

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Aman-CERP/amanrag/internal/index"
)

// PlainRenderer prints one line per finished stage.
type PlainRenderer struct {
	mu   sync.Mutex
	out  io.Writer
	done map[index.Stage]bool
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{
		out:  cfg.Output,
		done: make(map[index.Stage]bool),
	}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(context.Context) error {
	return nil
}

// Update implements Renderer.
func (r *PlainRenderer) Update(stage index.Stage, current, total int, name string) {
	if total <= 0 || current < total {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done[stage] {
		return
	}
	r.done[stage] = true

	switch stage {
	case index.StageScan:
		_, _ = fmt.Fprintf(r.out, "[%s] %d files found\n", StageIcon(stage), total)
	case index.StageRead:
		_, _ = fmt.Fprintf(r.out, "[%s] %d/%d files read\n", StageIcon(stage), current, total)
	case index.StageWrite:
		_, _ = fmt.Fprintf(r.out, "[%s] %s\n", StageIcon(stage), name)
	default:
		_, _ = fmt.Fprintf(r.out, "[%s] done\n", StageIcon(stage))
	}
}

// Complete implements Renderer. The summary is left to the caller.
func (r *PlainRenderer) Complete(*index.Result) {}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}
