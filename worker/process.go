package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/danintel/trusted-compute-framework/log"
	"github.com/danintel/trusted-compute-framework/session"
	"github.com/danintel/trusted-compute-framework/signature"
	"github.com/danintel/trusted-compute-framework/workorder"
)

// process runs a work order to completion and stores its final response.
func (w *Worker) process(ctx context.Context, req *workorder.Request) *workorder.Response {
	woID := req.Params.WorkOrderID
	w.setStatus(woID, workorder.StatusProcessing)
	start := time.Now()

	var resp *workorder.Response
	result, status, err := w.execute(ctx, req)
	if err != nil {
		log.Warnf("work order %s failed with %s: %v", woID, status, err)
		resp = workorder.NewErrorResponse(req.ID, woID, status, err.Error())
	} else {
		resp = &workorder.Response{JSONRPC: workorder.JSONRPCVersion, ID: req.ID, Result: result}
		log.Infof("work order %s processed in %s", woID, time.Since(start))
	}
	WorkOrderSeconds.Observe(time.Since(start).Seconds())
	WorkOrdersTotal.WithLabelValues(status.String()).Inc()

	if err := w.store.Put(woID, resp); err != nil {
		log.Errorf("cannot store result of work order %s: %v", woID, err)
	}
	w.finish(woID)
	return resp
}

// execute checks, decrypts and runs a work order, and returns its signed
// result.
func (w *Worker) execute(ctx context.Context, req *workorder.Request) (*workorder.Result, workorder.Status, error) {
	p := req.Params
	if p.WorkerID != w.descriptor.WorkerID {
		return nil, workorder.StatusInvalidParameterFormatOrValue, fmt.Errorf("unknown worker %s", p.WorkerID)
	}
	if status := w.signature.VerifyRequest(req); status != signature.StatusPassed {
		return nil, workorder.StatusInvalidSignature, fmt.Errorf("requester signature verification: %s", status)
	}
	sessionKey, err := session.Open(p.EncryptedSessionKey, w.cipher)
	if err != nil {
		return nil, workorder.StatusInvalidParameterFormatOrValue, err
	}
	if err := w.signature.CheckRequestHash(req, sessionKey); err != nil {
		return nil, workorder.StatusInvalidSignature, err
	}
	workload, err := w.workload(p.WorkloadID)
	if err != nil {
		return nil, workorder.StatusInvalidParameterFormatOrValue, err
	}

	inData := workorder.SortedItems(p.InData)
	dataKey := func(item *workorder.DataItem) ([]byte, []byte, error) {
		key, err := session.UnwrapDataKey(item.EncryptedDataEncryptionKey, w.cipher, sessionKey, p.SessionKeyIV)
		if err != nil {
			return nil, nil, err
		}
		iv, err := session.ParseIV(item.IV)
		if err != nil {
			return nil, nil, err
		}
		return key, iv, nil
	}
	if err := signature.DecryptItems(inData, sessionKey, p.SessionKeyIV, dataKey); err != nil {
		return nil, workorder.StatusInvalidDataFormat, err
	}

	outData, err := workload(ctx, inData)
	if err != nil {
		return nil, workorder.StatusFailed, fmt.Errorf("workload %s: %w", p.WorkloadID, err)
	}
	applyOutputPolicies(outData, p.OutData)
	if err := signature.EncryptItems(outData, sessionKey, p.SessionKeyIV, nil, nil); err != nil {
		return nil, workorder.StatusUnknownError, err
	}

	result := &workorder.Result{Header: p.Header, OutData: outData}
	if err := w.signature.SignResult(result); err != nil {
		return nil, workorder.StatusUnknownError, fmt.Errorf("cannot sign result: %w", err)
	}
	return result, workorder.StatusSuccess, nil
}

// applyOutputPolicies keeps in clear text the output items the requester
// asked for in clear text. Every other output item is encrypted with the
// session key, as third party keys are not supported for results.
func applyOutputPolicies(outData, requested []workorder.DataItem) {
	inClear := make(map[int]bool, len(requested))
	for i := range requested {
		if requested[i].Policy() == workorder.PolicyClear {
			inClear[requested[i].Index] = true
		}
	}
	for i := range outData {
		outData[i].EncryptedDataEncryptionKey = ""
		outData[i].IV = ""
		if inClear[outData[i].Index] {
			outData[i].EncryptedDataEncryptionKey = workorder.ClearText
		}
	}
}
