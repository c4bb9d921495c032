// Package rpcclient is a JSON-RPC over HTTP client for worker services. It
// implements workorder.Submitter.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/danintel/trusted-compute-framework/log"
	"github.com/danintel/trusted-compute-framework/types"
	"github.com/danintel/trusted-compute-framework/workorder"
)

// ErrTimeout is returned when a synchronous work order does not complete
// within its responseTimeoutMSecs.
var ErrTimeout = errors.New("work order response timeout")

const errCodeNot200 = "worker service returned status code is not 200"

// Client talks to the JSON-RPC endpoint of a worker service.
type Client struct {
	c    *http.Client
	addr *url.URL
}

var _ workorder.Submitter = (*Client)(nil)

// New creates a client for the worker service endpoint at addr.
func New(addr string) (*Client, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported worker service URL %q", addr)
	}
	tr := &http.Transport{
		IdleConnTimeout:    10 * time.Second,
		DisableCompression: false,
		WriteBufferSize:    1 * 1024 * 1024, // 1 MiB
		ReadBufferSize:     1 * 1024 * 1024, // 1 MiB
	}
	// no client timeout, synchronous calls are bounded by their context
	return &Client{c: &http.Client{Transport: tr}, addr: u}, nil
}

// Address returns the worker service endpoint.
func (c *Client) Address() string {
	return c.addr.String()
}

// Request sends a JSON-RPC call and decodes the response envelope.
func (c *Client) Request(ctx context.Context, body any) (*workorder.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	log.Debugf("request: %s", data)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.addr.String(), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "TCF work order client / 1.0")
	resp, err := c.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %d (%s)", errCodeNot200, resp.StatusCode, bytes.TrimSpace(respBody))
	}
	log.Debugf("response: %s", respBody)
	wresp := &workorder.Response{}
	if err := json.Unmarshal(respBody, wresp); err != nil {
		return nil, fmt.Errorf("cannot decode response: %w", err)
	}
	return wresp, nil
}

// WorkOrderSubmit submits a signed work order. A missing request id is
// filled with a random UUID.
//
// If responseTimeoutMSecs is zero the worker only schedules the work order
// and answers with a StatusScheduled error, to be followed by
// WorkOrderGetResult. Otherwise the call waits at most that many
// milliseconds and fails with ErrTimeout after that. There are no retries.
func (c *Client) WorkOrderSubmit(ctx context.Context, req *workorder.Request) (*workorder.Response, error) {
	if req.Params == nil {
		return nil, errors.New("work order request has no params")
	}
	if req.ID.IsZero() {
		req.ID = types.StringID(uuid.New().String())
	}
	if req.JSONRPC == "" {
		req.JSONRPC = workorder.JSONRPCVersion
	}
	req.Method = workorder.MethodSubmit
	if ms := req.Params.ResponseTimeoutMSecs; ms > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
		defer cancel()
	}
	resp, err := c.Request(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("work order %s: %w", req.Params.WorkOrderID, ErrTimeout)
		}
		return nil, err
	}
	return resp, nil
}

type getResultRequest struct {
	JSONRPC string                     `json:"jsonrpc"`
	Method  string                     `json:"method"`
	ID      types.RequestID            `json:"id"`
	Params  *workorder.GetResultParams `json:"params"`
}

// WorkOrderGetResult fetches the result of a submitted work order. Work
// orders not finished yet are answered with a StatusPending,
// StatusScheduled or StatusProcessing error.
func (c *Client) WorkOrderGetResult(ctx context.Context, workOrderID string) (*workorder.Response, error) {
	return c.Request(ctx, &getResultRequest{
		JSONRPC: workorder.JSONRPCVersion,
		Method:  workorder.MethodGetResult,
		ID:      types.StringID(uuid.New().String()),
		Params:  &workorder.GetResultParams{WorkOrderID: workOrderID},
	})
}

// WaitResult polls WorkOrderGetResult every interval until the work order
// is no longer pending, or ctx is done.
func (c *Client) WaitResult(ctx context.Context, workOrderID string, interval time.Duration) (*workorder.Response, error) {
	poll := time.NewTicker(interval)
	defer poll.Stop()
	for {
		resp, err := c.WorkOrderGetResult(ctx, workOrderID)
		if err != nil {
			return nil, err
		}
		if resp.Error == nil || !resp.Error.Code.Pending() {
			return resp, nil
		}
		log.Debugf("work order %s is %s", workOrderID, resp.Error.Code)
		select {
		case <-poll.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for work order %s: %w", workOrderID, ctx.Err())
		}
	}
}
