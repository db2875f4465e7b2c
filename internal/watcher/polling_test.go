package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startPolling runs a polling watcher on dir and waits for its baseline.
func startPolling(t *testing.T, dir string) *PollingWatcher {
	t.Helper()

	w := NewPollingWatcher(20 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})

	go func() { _ = w.Start(ctx, dir) }()
	time.Sleep(60 * time.Millisecond)
	return w
}

func nextEvent(t *testing.T, w *PollingWatcher) FileEvent {
	t.Helper()

	select {
	case event := <-w.Events():
		return event
	case err := <-w.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	return FileEvent{}
}

func TestPollingWatcher_DetectsChanges(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, dir string)
		change func(t *testing.T, dir string)
		wantOp Operation
	}{
		{
			name: "create",
			change: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.txt"), []byte("new"), 0o644))
			},
			wantOp: OpCreate,
		},
		{
			name: "modify",
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.txt"), []byte("old"), 0o644))
			},
			change: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.txt"), []byte("longer text"), 0o644))
			},
			wantOp: OpModify,
		},
		{
			name: "delete",
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.txt"), []byte("old"), 0o644))
			},
			change: func(t *testing.T, dir string) {
				require.NoError(t, os.Remove(filepath.Join(dir, "doc.txt")))
			},
			wantOp: OpDelete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a watched directory
			dir := t.TempDir()
			if tt.setup != nil {
				tt.setup(t, dir)
			}
			w := startPolling(t, dir)

			// When: the directory changes
			tt.change(t, dir)

			// Then: the change is reported by entry name
			event := nextEvent(t, w)
			assert.Equal(t, tt.wantOp, event.Operation)
			assert.Equal(t, "doc.txt", event.Path)
		})
	}
}

func TestPollingWatcher_IgnoresNestedFiles(t *testing.T) {
	// Given: a watched directory with a subdirectory
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	w := startPolling(t, dir)

	// When: a file appears inside the subdirectory
	require.NoError(t, os.WriteFile(filepath.Join(sub, "deep.txt"), []byte("x"), 0o644))

	// Then: no event names the nested file
	deadline := time.After(150 * time.Millisecond)
	for {
		select {
		case event := <-w.Events():
			assert.NotEqual(t, filepath.Join("nested", "deep.txt"), event.Path)
		case <-deadline:
			return
		}
	}
}

func TestPollingWatcher_StopClosesChannels(t *testing.T) {
	dir := t.TempDir()
	w := NewPollingWatcher(20 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- w.Start(context.Background(), dir) }()
	time.Sleep(40 * time.Millisecond)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
	_, ok := <-w.Events()
	assert.False(t, ok)
}

func TestPollingWatcher_ContextCancellation(t *testing.T) {
	dir := t.TempDir()
	w := NewPollingWatcher(20 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, dir) }()
	time.Sleep(40 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestPollingWatcher_MissingDirectory(t *testing.T) {
	w := NewPollingWatcher(20 * time.Millisecond)
	defer func() { _ = w.Stop() }()

	err := w.Start(context.Background(), filepath.Join(t.TempDir(), "absent"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial scan")
}
