package daemon

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanrag/internal/search"
)

// stubHandler answers retrieve with fixed results.
type stubHandler struct {
	results []search.Result
	err     error
	got     RetrieveParams
}

func (h *stubHandler) Retrieve(_ context.Context, p RetrieveParams) ([]search.Result, error) {
	h.got = p
	return h.results, h.err
}

func (h *stubHandler) Status() StatusResult {
	return StatusResult{ProjectsLoaded: 1, Projects: []string{"/p"}}
}

// startServer runs a server with h until the test ends.
func startServer(t *testing.T, h RequestHandler) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	cfg := testConfig(t)
	srv := NewServer(cfg.SocketPath, time.Second)
	if h != nil {
		srv.SetHandler(h)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()
	t.Cleanup(cancel)

	require.Eventually(t, func() bool {
		conn, err := net.Dial("unix", cfg.SocketPath)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)
	return cfg.SocketPath, cancel, errCh
}

// roundTrip writes raw to the socket and decodes one response.
func roundTrip(t *testing.T, socket string, raw string) Response {
	t.Helper()
	conn, err := net.Dial("unix", socket)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_, err = conn.Write([]byte(raw + "\n"))
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))
	return resp
}

func TestServer_StopsOnCancel(t *testing.T) {
	// Given: a running server
	socket, cancel, errCh := startServer(t, nil)

	// When: its context is cancelled
	cancel()

	// Then: it returns the cancellation and removes the socket
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
	_, err := os.Stat(socket)
	assert.True(t, os.IsNotExist(err))
}

func TestServer_Requests(t *testing.T) {
	h := &stubHandler{results: []search.Result{{ID: "a.txt#1", Title: "a.txt", Text: "Rust ownership model.", Score: 1.5}}}
	socket, _, _ := startServer(t, h)

	tests := []struct {
		name      string
		raw       string
		wantError int
		check     func(t *testing.T, resp Response)
	}{
		{
			name: "ping",
			raw:  `{"jsonrpc":"2.0","method":"ping","id":"1"}`,
			check: func(t *testing.T, resp Response) {
				assert.Equal(t, map[string]any{"pong": true}, resp.Result)
			},
		},
		{
			name: "status",
			raw:  `{"jsonrpc":"2.0","method":"status","id":"2"}`,
			check: func(t *testing.T, resp Response) {
				status := resp.Result.(map[string]any)
				assert.Equal(t, true, status["running"])
				assert.Equal(t, float64(os.Getpid()), status["pid"])
				assert.Equal(t, float64(1), status["projects_loaded"])
			},
		},
		{
			name: "retrieve",
			raw:  `{"jsonrpc":"2.0","method":"retrieve","params":{"query":"ownership","root_path":"/p","top_k":3},"id":"3"}`,
			check: func(t *testing.T, resp Response) {
				results := resp.Result.([]any)
				require.Len(t, results, 1)
				assert.Equal(t, "a.txt#1", results[0].(map[string]any)["id"])
				assert.Equal(t, RetrieveParams{Query: "ownership", RootPath: "/p", TopK: 3}, h.got)
			},
		},
		{
			name:      "negative top_k",
			raw:       `{"jsonrpc":"2.0","method":"retrieve","params":{"query":"q","root_path":"/p","top_k":-2},"id":"4"}`,
			wantError: ErrCodeInvalidParams,
		},
		{
			name:      "unknown method",
			raw:       `{"jsonrpc":"2.0","method":"compact","id":"5"}`,
			wantError: ErrCodeMethodNotFound,
		},
		{
			name:      "wrong version",
			raw:       `{"jsonrpc":"1.0","method":"ping","id":"6"}`,
			wantError: ErrCodeInvalidRequest,
		},
		{
			name:      "malformed",
			raw:       `{not json`,
			wantError: ErrCodeParseError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := roundTrip(t, socket, tt.raw)

			if tt.wantError != 0 {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tt.wantError, resp.Error.Code)
				return
			}
			require.Nil(t, resp.Error)
			tt.check(t, resp)
		})
	}
}

func TestServer_RetrieveWithoutHandler(t *testing.T) {
	socket, _, _ := startServer(t, nil)

	resp := roundTrip(t, socket, `{"jsonrpc":"2.0","method":"retrieve","params":{"root_path":"/p"},"id":"1"}`)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInternalError, resp.Error.Code)
}

func TestServer_EmptyResultIsArray(t *testing.T) {
	socket, _, _ := startServer(t, &stubHandler{})

	resp := roundTrip(t, socket, `{"jsonrpc":"2.0","method":"retrieve","params":{"root_path":"/p","top_k":0},"id":"1"}`)

	require.Nil(t, resp.Error)
	assert.Equal(t, []any{}, resp.Result)
}
