// Package worker is a reference worker service. It checks and decrypts
// signed work orders, runs the requested workload and returns results
// encrypted under the session key and signed with the worker key.
//
// Work orders with a zero responseTimeoutMSecs are queued and processed in
// the background, their result is fetched later with WorkOrderGetResult.
// The rest are processed while the caller waits.
package worker

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/enriquebris/goconcurrentqueue"

	"github.com/danintel/trusted-compute-framework/config"
	"github.com/danintel/trusted-compute-framework/crypto"
	"github.com/danintel/trusted-compute-framework/log"
	"github.com/danintel/trusted-compute-framework/signature"
	"github.com/danintel/trusted-compute-framework/types"
	"github.com/danintel/trusted-compute-framework/workorder"
)

// DataEncryptionAlgorithm is the symmetric cipher of data items.
const DataEncryptionAlgorithm = "AES-GCM-256"

// Options configures a Worker.
type Options struct {
	WorkerID   string
	ServiceURI string
	Algorithms config.Algorithms
	// SignKeys sign the results.
	SignKeys signature.Signer
	// EncryptionKey opens session keys and third party data keys.
	EncryptionKey crypto.Cipher
	// Store keeps results, a memory store is used if nil.
	Store ResultStore
	// QueueSize bounds the number of queued asynchronous work orders.
	QueueSize int
}

// Worker processes work orders. It implements workorder.Submitter.
type Worker struct {
	descriptor workorder.WorkerDescriptor
	signature  *signature.WorkerSignature
	cipher     crypto.Cipher
	store      ResultStore
	queue      *goconcurrentqueue.FixedFIFO

	workloads     map[string]Workload
	workloadsLock sync.RWMutex

	// statuses holds the work orders not finished yet
	statuses     map[string]workorder.Status
	statusesLock sync.Mutex

	wg sync.WaitGroup
}

var _ workorder.Submitter = (*Worker)(nil)

// New creates a worker with the EchoWorkload registered. Start must be
// called for asynchronous work orders to be processed.
func New(opts Options) (*Worker, error) {
	if opts.WorkerID == "" {
		return nil, errors.New("worker id is empty")
	}
	if opts.SignKeys == nil || opts.EncryptionKey == nil {
		return nil, errors.New("worker keys are missing")
	}
	if err := opts.Algorithms.Validate(); err != nil {
		return nil, err
	}
	ws, err := signature.NewWorkerSignature(opts.Algorithms, opts.SignKeys)
	if err != nil {
		return nil, err
	}
	verificationKey, err := opts.SignKeys.PublicPEM()
	if err != nil {
		return nil, err
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore(config.DefaultResultCacheSize)
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = config.DefaultQueueSize
	}
	w := &Worker{
		descriptor: workorder.WorkerDescriptor{
			WorkerID:                opts.WorkerID,
			HashingAlgorithm:        opts.Algorithms.HashingAlgorithm,
			SigningAlgorithm:        opts.Algorithms.SigningAlgorithm,
			DataEncryptionAlgorithm: DataEncryptionAlgorithm,
			EncryptionKey:           hex.EncodeToString(opts.EncryptionKey.Public().Bytes()),
			VerificationKey:         verificationKey,
			ServiceURI:              opts.ServiceURI,
		},
		signature: ws,
		cipher:    opts.EncryptionKey,
		store:     opts.Store,
		queue:     goconcurrentqueue.NewFixedFIFO(opts.QueueSize),
		workloads: make(map[string]Workload),
		statuses:  make(map[string]workorder.Status),
	}
	if err := w.RegisterWorkload(EchoWorkload, Echo); err != nil {
		return nil, err
	}
	return w, nil
}

// Descriptor returns the worker descriptor requesters need to sign work
// orders for this worker.
func (w *Worker) Descriptor() *workorder.WorkerDescriptor {
	wd := w.descriptor
	return &wd
}

// Start processes queued work orders in the background until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			v, err := w.queue.DequeueOrWaitForNextElementContext(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warnf("cannot dequeue work order: %v", err)
				continue
			}
			QueuedWorkOrders.Dec()
			w.process(ctx, v.(*workorder.Request))
		}
	}()
}

// Wait blocks until the background processing started by Start exits.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// Close closes the result store. The worker must not be used afterwards.
func (w *Worker) Close() error {
	return w.store.Close()
}

// WorkOrderSubmit processes a signed work order. Failures are reported as
// error responses; the returned error is always nil.
func (w *Worker) WorkOrderSubmit(ctx context.Context, req *workorder.Request) (*workorder.Response, error) {
	p := req.Params
	if p == nil || p.WorkOrderID == "" {
		return workorder.NewErrorResponse(req.ID, "", workorder.StatusInvalidParameterFormatOrValue,
			"missing work order id"), nil
	}
	if err := w.begin(p.WorkOrderID); err != nil {
		return workorder.NewErrorResponse(req.ID, p.WorkOrderID, workorder.StatusInvalidParameterFormatOrValue,
			err.Error()), nil
	}
	if p.ResponseTimeoutMSecs <= 0 {
		// set before queueing, the result may be ready before Enqueue returns
		w.setStatus(p.WorkOrderID, workorder.StatusScheduled)
		if err := w.queue.Enqueue(req); err != nil {
			w.finish(p.WorkOrderID)
			log.Warnf("cannot queue work order %s: %v", p.WorkOrderID, err)
			return workorder.NewErrorResponse(req.ID, p.WorkOrderID, workorder.StatusBusy,
				"work order queue is full"), nil
		}
		QueuedWorkOrders.Inc()
		log.Debugf("work order %s scheduled", p.WorkOrderID)
		return workorder.NewErrorResponse(req.ID, p.WorkOrderID, workorder.StatusScheduled,
			"work order scheduled"), nil
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.ResponseTimeoutMSecs)*time.Millisecond)
	defer cancel()
	return w.process(ctx, req), nil
}

// WorkOrderGetResult returns the final response of a work order, or a
// pending status error while it is still queued or running. The response id
// is the one of the submit call.
func (w *Worker) WorkOrderGetResult(ctx context.Context, workOrderID string) (*workorder.Response, error) {
	if status, ok := w.status(workOrderID); ok {
		return workorder.NewErrorResponse(types.RequestID{}, workOrderID, status, "work order is "+status.String()), nil
	}
	resp, err := w.store.Get(workOrderID)
	if errors.Is(err, ErrResultNotFound) {
		return workorder.NewErrorResponse(types.RequestID{}, workOrderID, workorder.StatusInvalidParameterFormatOrValue,
			"work order not found"), nil
	}
	if err != nil {
		log.Errorf("cannot get result of work order %s: %v", workOrderID, err)
		return workorder.NewErrorResponse(types.RequestID{}, workOrderID, workorder.StatusUnknownError,
			"cannot get work order result"), nil
	}
	return resp, nil
}

// begin marks a work order as pending, failing if it is already known.
func (w *Worker) begin(workOrderID string) error {
	w.statusesLock.Lock()
	defer w.statusesLock.Unlock()
	if _, ok := w.statuses[workOrderID]; ok {
		return fmt.Errorf("work order %s already submitted", workOrderID)
	}
	if _, err := w.store.Get(workOrderID); err == nil {
		return fmt.Errorf("work order %s already submitted", workOrderID)
	}
	w.statuses[workOrderID] = workorder.StatusPending
	return nil
}

func (w *Worker) setStatus(workOrderID string, status workorder.Status) {
	w.statusesLock.Lock()
	defer w.statusesLock.Unlock()
	w.statuses[workOrderID] = status
}

func (w *Worker) status(workOrderID string) (workorder.Status, bool) {
	w.statusesLock.Lock()
	defer w.statusesLock.Unlock()
	s, ok := w.statuses[workOrderID]
	return s, ok
}

func (w *Worker) finish(workOrderID string) {
	w.statusesLock.Lock()
	defer w.statusesLock.Unlock()
	delete(w.statuses, workOrderID)
}
