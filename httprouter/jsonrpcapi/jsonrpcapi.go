// Package jsonrpcapi is a httprouter namespace serving JSON-RPC 2.0 calls.
// Every method shares the URL path the namespace is mounted on.
package jsonrpcapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/danintel/trusted-compute-framework/httprouter"
	"github.com/danintel/trusted-compute-framework/log"
	"github.com/danintel/trusted-compute-framework/types"
)

// Version is the only JSON-RPC version accepted.
const Version = "2.0"

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// maxBodySize bounds the size of a request body.
const maxBodySize = 16 << 20

// Request is a decoded JSON-RPC call. Params is left raw for the method
// handler to decode.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	ID      types.RequestID `json:"id"`
	Params  json.RawMessage `json:"params,omitempty"`

	// Body is the request as received.
	Body []byte `json:"-"`
}

// Error is the JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      types.RequestID `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// MethodFn answers one call, through SendResult or SendError.
type MethodFn func(ctx *httprouter.HTTPContext, call *Request)

// JSONRPC is a httprouter namespace dispatching calls by method.
type JSONRPC struct {
	methods     map[string]MethodFn
	methodsLock sync.RWMutex
}

// NewJSONRPC returns a namespace without methods.
func NewJSONRPC() *JSONRPC {
	return &JSONRPC{methods: make(map[string]MethodFn, 4)}
}

// RegisterMethod adds method to the namespace.
func (j *JSONRPC) RegisterMethod(method string, fn MethodFn) error {
	j.methodsLock.Lock()
	defer j.methodsLock.Unlock()
	if _, ok := j.methods[method]; ok {
		return fmt.Errorf("duplicate method %s", method)
	}
	j.methods[method] = fn
	return nil
}

// Decode implements httprouter.Namespace.
func (j *JSONRPC) Decode(req *http.Request) (any, error) {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("cannot read request: %w", err)
	}
	log.Debugf("got request: %s", body)
	call := &Request{}
	if err := json.Unmarshal(body, call); err != nil {
		return nil, fmt.Errorf("invalid JSON-RPC request: %w", err)
	}
	if call.JSONRPC != Version {
		return nil, fmt.Errorf("unsupported JSON-RPC version %q", call.JSONRPC)
	}
	if call.Method == "" {
		return nil, errors.New("method is empty")
	}
	call.Body = body
	return call, nil
}

// Handle is the httprouter handler of the namespace. Unknown methods are
// answered with CodeMethodNotFound.
func (j *JSONRPC) Handle(msg httprouter.Message) {
	call := msg.Data.(*Request)
	j.methodsLock.RLock()
	fn, ok := j.methods[call.Method]
	j.methodsLock.RUnlock()
	if !ok {
		if err := SendError(msg.Context, call.ID, &Error{
			Code:    CodeMethodNotFound,
			Message: "method not found: " + call.Method,
		}); err != nil {
			log.Warnf("cannot send JSON-RPC error: %v", err)
		}
		return
	}
	fn(msg.Context, call)
}

// SendResult answers a call with a result.
func SendResult(ctx *httprouter.HTTPContext, id types.RequestID, result any) error {
	return ctx.SendJSON(&response{JSONRPC: Version, ID: id, Result: result}, http.StatusOK)
}

// SendError answers a call with an error object.
func SendError(ctx *httprouter.HTTPContext, id types.RequestID, rpcErr *Error) error {
	return ctx.SendJSON(&response{JSONRPC: Version, ID: id, Error: rpcErr}, http.StatusOK)
}
