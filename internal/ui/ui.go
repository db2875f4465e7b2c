// Package ui renders ingestion progress: an animated bubbletea view on
// interactive terminals and plain lines for pipes, files and CI.
package ui

import (
	"context"
	"io"
	"os"

	"github.com/Aman-CERP/amanrag/internal/index"
	"github.com/Aman-CERP/amanrag/internal/output"
)

// StageLabel returns the display name of an ingestion stage.
func StageLabel(s index.Stage) string {
	switch s {
	case index.StageScan:
		return "Scanning"
	case index.StageRead:
		return "Reading"
	case index.StageBuild:
		return "Chunking"
	case index.StageWrite:
		return "Writing"
	default:
		return "Working"
	}
}

// StageIcon returns the short stage tag for plain output.
func StageIcon(s index.Stage) string {
	switch s {
	case index.StageScan:
		return "SCAN"
	case index.StageRead:
		return "READ"
	case index.StageBuild:
		return "BUILD"
	case index.StageWrite:
		return "WRITE"
	default:
		return "???"
	}
}

// Renderer displays the progress of one ingestion run.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// Update records a progress event. It matches index.ProgressFunc.
	Update(stage index.Stage, current, total int, name string)

	// Complete marks the run as finished.
	Complete(result *index.Result)

	// Stop stops the renderer and restores the terminal.
	Stop() error
}

// Config configures the renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	SourceDir  string // shown in the TUI header
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithSourceDir sets the directory shown in the header.
func WithSourceDir(dir string) ConfigOption {
	return func(c *Config) {
		c.SourceDir = dir
	}
}

// NewConfig creates a Config for output.
func NewConfig(out io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: out}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer returns the TUI renderer for interactive terminals and the
// plain renderer everywhere else.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !output.IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}
	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, ok := os.LookupEnv(v); ok {
			return true
		}
	}
	return false
}
