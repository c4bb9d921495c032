// Package workorder holds the work order payloads exchanged between
// requesters and workers over JSON-RPC, and the checks a request must pass
// before it can be signed.
package workorder

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/danintel/trusted-compute-framework/types"
)

const (
	// JSONRPCVersion is the JSON-RPC protocol version of every envelope.
	JSONRPCVersion = "2.0"
	// MethodSubmit submits a new work order.
	MethodSubmit = "WorkOrderSubmit"
	// MethodGetResult polls for the result of a submitted work order.
	MethodGetResult = "WorkOrderGetResult"
)

// Header holds the identifiers which, together with a nonce, make up the
// header hash of requests and results.
type Header struct {
	WorkOrderID string `json:"workOrderId"`
	WorkerID    string `json:"workerId"`
	WorkloadID  string `json:"workloadId,omitempty"`
	RequesterID string `json:"requesterId"`
}

// DataItem is one indexed unit of input or output data.
type DataItem struct {
	Index                      int    `json:"index"`
	DataHash                   string `json:"dataHash,omitempty"`
	Data                       string `json:"data"`
	EncryptedDataEncryptionKey string `json:"encryptedDataEncryptionKey,omitempty"`
	IV                         string `json:"iv,omitempty"`
}

// Policy returns the key disclosure policy selected by the item.
func (d *DataItem) Policy() KeyPolicy {
	return ParseKeyPolicy(d.EncryptedDataEncryptionKey)
}

// SortItems sorts items by index, in place. Items sharing an index keep their
// relative order.
func SortItems(items []DataItem) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Index < items[j].Index })
}

// SortedItems returns a copy of items sorted by index, leaving items as is.
func SortedItems(items []DataItem) []DataItem {
	if items == nil {
		return nil
	}
	sorted := make([]DataItem, len(items))
	copy(sorted, items)
	SortItems(sorted)
	return sorted
}

// Params are the parameters of a WorkOrderSubmit request.
type Params struct {
	Header

	ResponseTimeoutMSecs    int            `json:"responseTimeoutMSecs"`
	PayloadFormat           string         `json:"payloadFormat,omitempty"`
	ResultURI               string         `json:"resultUri,omitempty"`
	NotifyURI               string         `json:"notifyUri,omitempty"`
	WorkerEncryptionKey     string         `json:"workerEncryptionKey,omitempty"`
	DataEncryptionAlgorithm string         `json:"dataEncryptionAlgorithm,omitempty"`
	EncryptedSessionKey     types.HexBytes `json:"encryptedSessionKey,omitempty"`
	SessionKeyIV            types.HexBytes `json:"sessionKeyIv,omitempty"`
	RequesterNonce          string         `json:"requesterNonce"`
	EncryptedRequestHash    types.HexBytes `json:"encryptedRequestHash,omitempty"`
	RequesterSignature      string         `json:"requesterSignature,omitempty"`
	// VerifyingKey carries the requester public key (PEM) so that workers
	// can check requesterSignature without a registry lookup.
	VerifyingKey string     `json:"verifyingKey,omitempty"`
	InData       []DataItem `json:"inData"`
	OutData      []DataItem `json:"outData,omitempty"`
}

// Request is the JSON-RPC envelope of a WorkOrderSubmit call.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	ID      types.RequestID `json:"id"`
	Params  *Params         `json:"params"`
}

// NewRequest returns a WorkOrderSubmit request with the given id.
func NewRequest(id types.RequestID, params *Params) *Request {
	return &Request{
		JSONRPC: JSONRPCVersion,
		Method:  MethodSubmit,
		ID:      id,
		Params:  params,
	}
}

// GetResultParams are the parameters of a WorkOrderGetResult call.
type GetResultParams struct {
	WorkOrderID string `json:"workOrderId"`
}

// Result is the signed outcome of a work order, as produced by the worker.
type Result struct {
	Header

	WorkerNonce     string     `json:"workerNonce"`
	WorkerSignature string     `json:"workerSignature"`
	OutData         []DataItem `json:"outData"`
	// Code is only set by workers reporting a failure inside the result.
	// Negative values mean error.
	Code *int `json:"code,omitempty"`
}

// RPCError is the JSON-RPC error object. Code holds a Status.
type RPCError struct {
	Code    Status           `json:"code"`
	Message string           `json:"message"`
	Data    *GetResultParams `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("work order error %d (%s): %s", int(e.Code), e.Code, e.Message)
}

// Response is the JSON-RPC envelope returned by workers. Exactly one of Result
// and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      types.RequestID `json:"id"`
	Result  *Result         `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// NewErrorResponse builds an error response for the work order.
func NewErrorResponse(id types.RequestID, workOrderID string, code Status, message string) *Response {
	e := &RPCError{Code: code, Message: message}
	if workOrderID != "" {
		e.Data = &GetResultParams{WorkOrderID: workOrderID}
	}
	return &Response{JSONRPC: JSONRPCVersion, ID: id, Error: e}
}

// WorkerDescriptor describes the algorithms and keys of a worker, as
// published in the worker registry.
type WorkerDescriptor struct {
	WorkerID                string `json:"workerId"`
	HashingAlgorithm        string `json:"hashingAlgorithm"`
	SigningAlgorithm        string `json:"signingAlgorithm"`
	DataEncryptionAlgorithm string `json:"dataEncryptionAlgorithm,omitempty"`
	// EncryptionKey is the hex nacl public key session keys are sealed to.
	EncryptionKey string `json:"workerEncryptionKey"`
	// VerificationKey is the PEM key checking worker result signatures.
	VerificationKey string `json:"workerTypedataVerificationKey"`
	ServiceURI      string `json:"serviceUri,omitempty"`
}

// ReadWorkerDescriptor loads a worker descriptor from a JSON file.
func ReadWorkerDescriptor(path string) (*WorkerDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	wd := &WorkerDescriptor{}
	if err := json.Unmarshal(data, wd); err != nil {
		return nil, fmt.Errorf("cannot decode worker descriptor %s: %w", path, err)
	}
	return wd, nil
}

// Save writes the descriptor to path as indented JSON.
func (wd *WorkerDescriptor) Save(path string) error {
	data, err := json.MarshalIndent(wd, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
