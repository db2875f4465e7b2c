package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanrag/internal/config"
)

var corpus = map[string]string{
	"a.txt": "Rust ownership model.\n\nGarbage collection notes.",
	"b.txt": "Go concurrency model.\n\nOwnership is not a Go concept.",
}

// setupProject creates a project root with .amanrag.yaml and the given
// documents in docs/, and makes it the working directory. HOME and
// XDG_CONFIG_HOME point at temp dirs so no user config or log file leaks in.
func setupProject(t *testing.T, files map[string]string, mutate func(*config.Config)) string {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	root := t.TempDir()
	cfg := config.NewConfig()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.WriteYAML(filepath.Join(root, config.ProjectFile)))

	if files != nil {
		src := filepath.Join(root, "docs")
		require.NoError(t, os.MkdirAll(src, 0o755))
		for name, content := range files {
			require.NoError(t, os.WriteFile(filepath.Join(src, name), []byte(content), 0o644))
		}
	}

	t.Chdir(root)
	return root
}

// execute runs the CLI with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(context.Background(), t, args...)
}

func executeContext(ctx context.Context, t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if stopErr := stopProfilingAndLogging(nil, nil); err == nil {
		err = stopErr
	}
	return buf.String(), err
}
