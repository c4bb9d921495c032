package workorder

import "context"

// Submitter delivers work orders to a worker service.
//
// WorkOrderSubmit with a zero responseTimeoutMSecs does not wait for the
// work order to run: the worker schedules it and answers with a
// StatusScheduled error, and the result is later fetched with
// WorkOrderGetResult. A positive timeout makes the call synchronous, bounded
// by that many milliseconds.
type Submitter interface {
	WorkOrderSubmit(ctx context.Context, req *Request) (*Response, error)
	WorkOrderGetResult(ctx context.Context, workOrderID string) (*Response, error)
}
