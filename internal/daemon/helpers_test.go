package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanrag/internal/search"
	"github.com/Aman-CERP/amanrag/internal/store"
)

// testConfig returns a config under a short temp dir; Unix socket paths
// are limited to about 100 bytes.
func testConfig(t *testing.T) Config {
	t.Helper()
	dir, err := os.MkdirTemp("", "amrd")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	return Config{
		SocketPath:  filepath.Join(dir, "d.sock"),
		PIDPath:     filepath.Join(dir, "d.pid"),
		Timeout:     5 * time.Second,
		MaxProjects: 2,
	}
}

var testTable = store.NewTable([]store.Chunk{
	{ID: "a.txt#1", Title: "a.txt", Body: "Rust ownership model."},
	{ID: "a.txt#2", Title: "a.txt", Body: "Garbage collection notes."},
	{ID: "b.txt#1", Title: "b.txt", Body: "Go concurrency model."},
	{ID: "b.txt#2", Title: "b.txt", Body: "Ownership is not a Go concept."},
})

// countingFactory builds in-memory engines over testTable and counts how
// many were built.
func countingFactory(t *testing.T, built *atomic.Int32) EngineFactory {
	t.Helper()
	return func(string) (search.Retriever, error) {
		built.Add(1)
		return search.NewEngine(search.StaticTableSource{Table: testTable}, search.DefaultConfig())
	}
}

// runDaemon starts d in the background and waits until it answers.
func runDaemon(t *testing.T, d *Daemon, cfg Config) (*Client, context.CancelFunc, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Start(ctx) }()

	client := NewClient(cfg)
	require.Eventually(t, client.IsRunning, 2*time.Second, 10*time.Millisecond)
	t.Cleanup(func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(5 * time.Second):
		}
	})
	return client, cancel, errCh
}
