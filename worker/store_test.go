package worker

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/danintel/trusted-compute-framework/config"
	"github.com/danintel/trusted-compute-framework/types"
	"github.com/danintel/trusted-compute-framework/workorder"
)

func testResultStore(t *testing.T, store ResultStore) {
	t.Helper()
	c := qt.New(t)

	_, err := store.Get("0x01")
	c.Assert(err, qt.ErrorIs, ErrResultNotFound)

	resp := &workorder.Response{
		JSONRPC: workorder.JSONRPCVersion,
		ID:      types.StringID("3"),
		Result: &workorder.Result{
			Header:          workorder.Header{WorkOrderID: "0x01", WorkerID: "worker-1", RequesterID: "0x02"},
			WorkerNonce:     "bm9uY2U=",
			WorkerSignature: "c2ln",
			OutData:         []workorder.DataItem{{Index: 0, Data: "b3V0"}},
		},
	}
	c.Assert(store.Put("0x01", resp), qt.IsNil)
	got, err := store.Get("0x01")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, resp)

	failed := workorder.NewErrorResponse(types.StringID("4"), "0x05", workorder.StatusFailed, "workload failed")
	c.Assert(store.Put("0x05", failed), qt.IsNil)
	got, err = store.Get("0x05")
	c.Assert(err, qt.IsNil)
	c.Assert(got.Error.Code, qt.Equals, workorder.StatusFailed)
	c.Assert(got.Error.Data.WorkOrderID, qt.Equals, "0x05")

	n, err := store.Len()
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 2)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	testResultStore(t, NewMemoryStore(8))
}

func TestMemoryStoreEviction(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore(1)
	qt.Assert(t, store.Put("a", &workorder.Response{ID: types.StringID("1")}), qt.IsNil)
	qt.Assert(t, store.Put("b", &workorder.Response{ID: types.StringID("2")}), qt.IsNil)
	_, err := store.Get("a")
	qt.Assert(t, err, qt.ErrorIs, ErrResultNotFound)
	n, _ := store.Len()
	qt.Assert(t, n, qt.Equals, 1)
}

func TestBadgerStore(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store, err := OpenResultStore(config.ResultStoreBadger, dir, 0)
	qt.Assert(t, err, qt.IsNil)
	testResultStore(t, store)
	qt.Assert(t, store.Close(), qt.IsNil)

	// results survive a restart
	store, err = OpenResultStore(config.ResultStoreBadger, dir, 0)
	qt.Assert(t, err, qt.IsNil)
	defer store.Close()
	got, err := store.Get("0x01")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, got.Result.WorkerSignature, qt.Equals, "c2ln")
	n, err := store.Len()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, n, qt.Equals, 2)
}

func TestOpenResultStoreUnknown(t *testing.T) {
	t.Parallel()
	_, err := OpenResultStore("mongodb", t.TempDir(), 1)
	qt.Assert(t, err, qt.ErrorMatches, `unknown result store "mongodb"`)
}
