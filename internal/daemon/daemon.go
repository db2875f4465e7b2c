package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/amanrag/internal/search"
)

// EngineFactory builds the retriever for a project root.
type EngineFactory func(root string) (search.Retriever, error)

// Daemon serves retrieval for several projects, keeping their engines and
// derived statistics loaded between CLI invocations.
type Daemon struct {
	cfg     Config
	factory EngineFactory
	server  *Server
	pidFile *PIDFile

	mu      sync.Mutex
	engines *lru.Cache[string, search.Retriever]
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithEngineFactory sets how project engines are built.
func WithEngineFactory(f EngineFactory) Option {
	return func(d *Daemon) {
		d.factory = f
	}
}

// NewDaemon creates a daemon. An engine factory is required.
func NewDaemon(cfg Config, opts ...Option) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid daemon config: %w", err)
	}

	d := &Daemon{
		cfg:     cfg,
		server:  NewServer(cfg.SocketPath, cfg.Timeout),
		pidFile: NewPIDFile(cfg.PIDPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.factory == nil {
		return nil, errors.New("engine factory is required")
	}

	engines, err := lru.NewWithEvict(cfg.MaxProjects, func(root string, _ search.Retriever) {
		slog.Info("daemon_project_evicted", slog.String("root", root))
	})
	if err != nil {
		return nil, fmt.Errorf("create engine cache: %w", err)
	}
	d.engines = engines
	d.server.SetHandler(d)
	return d, nil
}

// Start writes the PID file and serves until ctx is cancelled. It fails
// if another daemon already owns the PID file.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.cfg.EnsureDir(); err != nil {
		return err
	}
	if pid, err := d.pidFile.Read(); err == nil && pid != os.Getpid() && processExists(pid) {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	if err := d.pidFile.Write(); err != nil {
		return err
	}
	defer func() {
		if err := d.pidFile.Remove(); err != nil {
			slog.Warn("daemon_pidfile_remove_failed", slog.String("error", err.Error()))
		}
	}()

	slog.Info("daemon_started",
		slog.Int("pid", os.Getpid()),
		slog.String("socket", d.cfg.SocketPath),
		slog.Int("max_projects", d.cfg.MaxProjects))

	err := d.server.ListenAndServe(ctx)
	slog.Info("daemon_stopped", slog.Int("projects", d.engines.Len()))
	return err
}

// Retrieve ranks chunks of the project at params.RootPath.
func (d *Daemon) Retrieve(ctx context.Context, params RetrieveParams) ([]search.Result, error) {
	root, err := filepath.Abs(params.RootPath)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", params.RootPath, err)
	}
	engine, err := d.engine(root)
	if err != nil {
		return nil, err
	}
	return engine.Retrieve(ctx, params.Query, params.TopK)
}

func (d *Daemon) engine(root string) (search.Retriever, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if engine, ok := d.engines.Get(root); ok {
		return engine, nil
	}
	engine, err := d.factory(root)
	if err != nil {
		return nil, err
	}
	d.engines.Add(root, engine)
	slog.Info("daemon_project_loaded", slog.String("root", root))
	return engine, nil
}

// Status reports the loaded projects, least recently used first.
func (d *Daemon) Status() StatusResult {
	projects := d.engines.Keys()
	return StatusResult{
		ProjectsLoaded: len(projects),
		Projects:       projects,
	}
}
