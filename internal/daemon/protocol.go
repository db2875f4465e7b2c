package daemon

import (
	"fmt"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
)

// JSON-RPC 2.0 method names.
const (
	MethodRetrieve = "retrieve"
	MethodStatus   = "status"
	MethodPing     = "ping"
)

// Standard JSON-RPC 2.0 error codes.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Daemon-specific error codes.
const (
	ErrCodeProjectNotIndexed = -32001
	ErrCodeRetrieveFailed    = -32002
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      string `json:"id"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      string `json:"id"`
}

// Error represents a JSON-RPC 2.0 error. Data carries the amerrors code
// when the failure was a coded error.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// NewSuccessResponse creates a successful response.
func NewSuccessResponse(id string, result any) Response {
	return Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(id string, code int, message string) Response {
	return Response{
		JSONRPC: "2.0",
		Error: &Error{
			Code:    code,
			Message: message,
		},
		ID: id,
	}
}

// errorResponse maps a retrieval error to a response, keeping the coded
// error's code so the client can rebuild it.
func errorResponse(id string, err error) Response {
	coded, ok := amerrors.As(err)
	if !ok {
		return NewErrorResponse(id, ErrCodeRetrieveFailed, err.Error())
	}

	code := ErrCodeRetrieveFailed
	switch coded.Code {
	case amerrors.ErrCodeIndexNotFound:
		code = ErrCodeProjectNotIndexed
	case amerrors.ErrCodeInvalidTopK, amerrors.ErrCodeInvalidInput, amerrors.ErrCodeInvalidPath:
		code = ErrCodeInvalidParams
	}
	resp := NewErrorResponse(id, code, coded.Message)
	resp.Error.Data = coded.Code
	return resp
}

// Err converts a response error back into a Go error. Coded errors are
// rebuilt with their original code.
func (e *Error) Err() error {
	if e == nil {
		return nil
	}
	if e.Data != "" {
		return amerrors.New(e.Data, e.Message, nil)
	}
	return fmt.Errorf("daemon error %d: %s", e.Code, e.Message)
}

// RetrieveParams are the parameters for the retrieve method.
type RetrieveParams struct {
	// Query is the free-text query. An empty query yields no results.
	Query string `json:"query"`

	// RootPath is the project root (required).
	RootPath string `json:"root_path"`

	// TopK is the maximum number of results.
	TopK int `json:"top_k"`
}

// Validate checks the fields the daemon needs before loading a project.
func (p *RetrieveParams) Validate() error {
	if p.RootPath == "" {
		return amerrors.New(amerrors.ErrCodeInvalidPath, "root_path is required", nil)
	}
	return nil
}

// StatusResult contains daemon status information.
type StatusResult struct {
	Running        bool     `json:"running"`
	PID            int      `json:"pid"`
	Uptime         string   `json:"uptime"`
	ProjectsLoaded int      `json:"projects_loaded"`
	Projects       []string `json:"projects,omitempty"`
	Requests       int64    `json:"requests"`
}

// PingResult is the response to a ping request.
type PingResult struct {
	Pong bool `json:"pong"`
}
