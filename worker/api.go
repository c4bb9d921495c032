package worker

import (
	"encoding/json"
	"net/http"

	"github.com/danintel/trusted-compute-framework/httprouter"
	"github.com/danintel/trusted-compute-framework/httprouter/jsonrpcapi"
	"github.com/danintel/trusted-compute-framework/log"
	"github.com/danintel/trusted-compute-framework/types"
	"github.com/danintel/trusted-compute-framework/workorder"
)

const namespace = "workorder"

// EnableAPI serves WorkOrderSubmit and WorkOrderGetResult as JSON-RPC calls
// on path.
func (w *Worker) EnableAPI(router *httprouter.HTTProuter, path string) error {
	return EnableAPI(router, path, w)
}

// EnableAPI serves the work orders of s as JSON-RPC calls on path.
func EnableAPI(router *httprouter.HTTProuter, path string, s workorder.Submitter) error {
	a := &api{submitter: s}
	rpc := jsonrpcapi.NewJSONRPC()
	if err := rpc.RegisterMethod(workorder.MethodSubmit, a.submitHandler); err != nil {
		return err
	}
	if err := rpc.RegisterMethod(workorder.MethodGetResult, a.getResultHandler); err != nil {
		return err
	}
	router.AddNamespace(namespace, rpc)
	router.AddHandler(namespace, path, http.MethodPost, rpc.Handle)
	log.Infof("work order API ready at %s", path)
	return nil
}

type api struct {
	submitter workorder.Submitter
}

func (a *api) submitHandler(ctx *httprouter.HTTPContext, call *jsonrpcapi.Request) {
	req := &workorder.Request{}
	if err := json.Unmarshal(call.Body, req); err != nil || req.Params == nil {
		sendError(ctx, call.ID, jsonrpcapi.CodeInvalidParams, "invalid work order request")
		return
	}
	if !workorder.Validate(call.Body) {
		send(ctx, workorder.NewErrorResponse(call.ID, req.Params.WorkOrderID,
			workorder.StatusInvalidParameterFormatOrValue, "missing or invalid work order parameters"))
		return
	}
	resp, err := a.submitter.WorkOrderSubmit(ctx.Request.Context(), req)
	if err != nil || resp == nil {
		log.Errorf("cannot submit work order %s: %v", req.Params.WorkOrderID, err)
		send(ctx, workorder.NewErrorResponse(call.ID, req.Params.WorkOrderID,
			workorder.StatusUnknownError, "cannot submit work order"))
		return
	}
	send(ctx, resp)
}

func (a *api) getResultHandler(ctx *httprouter.HTTPContext, call *jsonrpcapi.Request) {
	params := &workorder.GetResultParams{}
	if err := json.Unmarshal(call.Params, params); err != nil || params.WorkOrderID == "" {
		sendError(ctx, call.ID, jsonrpcapi.CodeInvalidParams, "missing work order id")
		return
	}
	stored, err := a.submitter.WorkOrderGetResult(ctx.Request.Context(), params.WorkOrderID)
	if err != nil || stored == nil {
		log.Errorf("cannot get result of work order %s: %v", params.WorkOrderID, err)
		stored = workorder.NewErrorResponse(call.ID, params.WorkOrderID,
			workorder.StatusUnknownError, "cannot get work order result")
	}
	// answer with the id of this call, not the one of the submit call
	resp := *stored
	resp.ID = call.ID
	send(ctx, &resp)
}

func send(ctx *httprouter.HTTPContext, resp *workorder.Response) {
	if err := ctx.SendJSON(resp, http.StatusOK); err != nil {
		log.Warnf("cannot send work order response: %v", err)
	}
}

func sendError(ctx *httprouter.HTTPContext, id types.RequestID, code int, message string) {
	if err := jsonrpcapi.SendError(ctx, id, &jsonrpcapi.Error{Code: code, Message: message}); err != nil {
		log.Warnf("cannot send JSON-RPC error: %v", err)
	}
}
