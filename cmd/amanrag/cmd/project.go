package cmd

import (
	"os"

	"github.com/Aman-CERP/amanrag/internal/config"
	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/index"
	"github.com/Aman-CERP/amanrag/internal/search"
)

// project is the resolved working context of a command: the project root
// and its effective configuration.
type project struct {
	root string
	cfg  *config.Config
}

// loadProject finds the project root above the working directory and loads
// its configuration.
func loadProject() (*project, error) {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}
	return loadProjectAt(root)
}

// loadProjectAt loads the configuration of the project rooted at root.
func loadProjectAt(root string) (*project, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, amerrors.ConfigError("cannot load configuration", err).
			WithDetail("root", root).
			WithSuggestion("Check .amanrag.yaml and AMANRAG_* environment variables")
	}
	return &project{root: root, cfg: cfg}, nil
}

func (p *project) tablePath() string {
	return p.cfg.TablePath(p.root)
}

// engine builds a retrieval engine over the project's table file.
func (p *project) engine(opts ...search.EngineOption) (*search.Engine, error) {
	ec := search.DefaultConfig()
	ec.Params = search.Params{K1: p.cfg.Search.K1, B: p.cfg.Search.B}
	ec.CacheSize = p.cfg.Search.CacheSize
	return search.NewEngine(search.FileTableSource{Path: p.tablePath()}, ec, opts...)
}

// runnerConfig describes an ingestion run. An explicit dir replaces the
// configured source directory; only the configured one is created when
// missing.
func (p *project) runnerConfig(dir string) index.RunnerConfig {
	rc := index.RunnerConfig{
		SourceDir:       p.cfg.SourceDir(p.root),
		TablePath:       p.tablePath(),
		LockPath:        p.cfg.LockPath(p.root),
		CreateSourceDir: true,
		MaxFileSize:     p.cfg.Ingest.MaxFileSize,
		IncludeHidden:   p.cfg.Ingest.IncludeHidden,
		Workers:         p.cfg.Ingest.Workers,
	}
	if dir != "" {
		rc.SourceDir = dir
		rc.CreateSourceDir = false
	}
	return rc
}
