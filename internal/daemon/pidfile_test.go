package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFile_WriteReadRemove(t *testing.T) {
	// Given: a PID file in a missing directory
	pf := NewPIDFile(filepath.Join(t.TempDir(), "nested", "d.pid"))

	// When: writing it
	require.NoError(t, pf.Write())

	// Then: it holds this process and reports it running
	pid, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, pf.IsRunning())

	// When: removing it twice
	require.NoError(t, pf.Remove())
	require.NoError(t, pf.Remove())

	// Then: it is gone
	_, err = pf.Read()
	assert.ErrorIs(t, err, ErrPIDFileNotFound)
	assert.False(t, pf.IsRunning())
}

func TestPIDFile_Read(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr string
	}{
		{"trailing newline", "4242\n", 4242, ""},
		{"garbage", "not-a-pid", 0, "invalid PID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "d.pid")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			pid, err := NewPIDFile(path).Read()

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, pid)
		})
	}
}

func TestPIDFile_StaleProcess(t *testing.T) {
	// Given: a PID file naming a process that cannot exist
	path := filepath.Join(t.TempDir(), "d.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(-1)), 0o644))

	// Then
	assert.False(t, NewPIDFile(path).IsRunning())
}

func TestPIDFile_SignalWithoutFile(t *testing.T) {
	err := NewPIDFile(filepath.Join(t.TempDir(), "missing.pid")).Signal(0)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPIDFileNotFound)
}
