package worker

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/danintel/trusted-compute-framework/util"
	"github.com/danintel/trusted-compute-framework/workorder"
)

// EchoWorkload is the identifier of the workload registered by default.
const EchoWorkload = "echo-result"

// Workload computes the outData of a work order from its decrypted inData,
// sorted by index. The returned items carry plaintext data.
type Workload func(ctx context.Context, inData []workorder.DataItem) ([]workorder.DataItem, error)

// Echo answers every input item with "RESULT: " followed by its data.
func Echo(ctx context.Context, inData []workorder.DataItem) ([]workorder.DataItem, error) {
	out := make([]workorder.DataItem, 0, len(inData))
	for _, item := range inData {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, workorder.DataItem{
			Index: item.Index,
			Data:  "RESULT: " + item.Data,
		})
	}
	return out, nil
}

// RegisterWorkload makes a workload available under id.
func (w *Worker) RegisterWorkload(id string, workload Workload) error {
	w.workloadsLock.Lock()
	defer w.workloadsLock.Unlock()
	if _, ok := w.workloads[id]; ok {
		return fmt.Errorf("duplicate workload %s", id)
	}
	w.workloads[id] = workload
	return nil
}

// workload resolves the workloadId of a request. The id may be given as is,
// or hex encoded; empty selects EchoWorkload.
func (w *Worker) workload(id string) (Workload, error) {
	if id == "" {
		id = EchoWorkload
	}
	w.workloadsLock.RLock()
	defer w.workloadsLock.RUnlock()
	if wl, ok := w.workloads[id]; ok {
		return wl, nil
	}
	if name, err := hex.DecodeString(util.TrimHex(id)); err == nil {
		if wl, ok := w.workloads[string(name)]; ok {
			return wl, nil
		}
	}
	return nil, fmt.Errorf("unknown workload %s", id)
}
