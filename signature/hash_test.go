package signature

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/danintel/trusted-compute-framework/crypto/hashing"
	"github.com/danintel/trusted-compute-framework/workorder"
)

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := hashing.New(hashing.SHA256)
	qt.Assert(t, err, qt.IsNil)
	return NewHasher(h)
}

func b64sha256(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.StdEncoding.EncodeToString(sum[:])
}

var testItems = []workorder.DataItem{
	{Index: 0, DataHash: "aa", Data: "Zmlyc3Q=", IV: "00"},
	{Index: 1, Data: "c2Vjb25k", EncryptedDataEncryptionKey: "-"},
	{Index: 2, Data: "dGhpcmQ=", EncryptedDataEncryptionKey: "0bad", IV: "0102"},
}

func TestHeaderHash(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	h := newTestHasher(t)

	header := &workorder.Header{WorkOrderID: "wo", WorkerID: "wk", WorkloadID: "wl", RequesterID: "rq"}
	c.Assert(h.HeaderHash(header, []byte("nonce")), qt.Equals, b64sha256("noncewowkwlrq"))

	// an absent workloadId is hashed as the empty string
	header.WorkloadID = ""
	c.Assert(h.HeaderHash(header, []byte("nonce")), qt.Equals, b64sha256("noncewowkrq"))
}

func TestItemHash(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	h := newTestHasher(t)

	want := b64sha256("aaZmlyc3Q=00") + b64sha256("c2Vjb25k-") + b64sha256("dGhpcmQ=0bad0102")
	c.Assert(h.ItemHash(testItems), qt.Equals, want)
	c.Assert(h.ItemHash(nil), qt.Equals, "")

	// deterministic
	c.Assert(h.ItemHash(testItems), qt.Equals, h.ItemHash(testItems))
}

func TestItemHashFieldSensitivity(t *testing.T) {
	t.Parallel()
	h := newTestHasher(t)
	base := h.ItemHash(testItems)

	mutations := map[string]func(*workorder.DataItem){
		"DataHash": func(d *workorder.DataItem) { d.DataHash = "ab" },
		"Data":     func(d *workorder.DataItem) { d.Data = "Zmlyc3R=" },
		"Key":      func(d *workorder.DataItem) { d.EncryptedDataEncryptionKey = "null" },
		"IV":       func(d *workorder.DataItem) { d.IV = "01" },
	}
	for name, mutate := range mutations {
		items := workorder.SortedItems(testItems)
		mutate(&items[0])
		got := h.ItemHash(items)
		if got == base {
			t.Errorf("changing %s must change the item hash", name)
		}
		// only the first item hash changes
		qt.Check(t, got[len(got)-88:], qt.Equals, base[len(base)-88:])
	}
}

func TestRequestDigestOrder(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	h := newTestHasher(t)

	params := &workorder.Params{
		Header: workorder.Header{WorkOrderID: "wo", WorkerID: "wk", RequesterID: "rq"},
		InData: workorder.SortedItems(testItems),
	}
	digest := h.RequestDigest(params, []byte("nonce"))
	c.Assert(digest, qt.HasLen, sha256.Size)

	want := sha256.Sum256([]byte(h.HeaderHash(&params.Header, []byte("nonce")) + h.ItemHash(params.InData)))
	c.Assert(digest, qt.DeepEquals, want[:])

	// permuted items hash as their sorted form, and are left untouched
	shuffled := &workorder.Params{Header: params.Header, InData: []workorder.DataItem{testItems[2], testItems[0], testItems[1]}}
	c.Assert(h.RequestDigest(shuffled, []byte("nonce")), qt.DeepEquals, digest)
	c.Assert(shuffled.InData[0].Index, qt.Equals, 2)

	// outData takes part in the digest
	params.OutData = []workorder.DataItem{{Index: 0, Data: "out"}}
	c.Assert(h.RequestDigest(params, []byte("nonce")), qt.Not(qt.DeepEquals), digest)

	// and so does the nonce
	params.OutData = nil
	c.Assert(h.RequestDigest(params, []byte("other")), qt.Not(qt.DeepEquals), digest)
}

func TestResponseDigest(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	h := newTestHasher(t)

	result := &workorder.Result{
		Header:      workorder.Header{WorkOrderID: "wo", WorkerID: "wk", RequesterID: "rq"},
		WorkerNonce: "bm9uY2U=",
		OutData:     []workorder.DataItem{testItems[1], testItems[0]},
	}
	digest := h.ResponseDigest(result)

	// the worker nonce is not hashed again
	header := h.HeaderHash(&result.Header, []byte("bm9uY2U="))
	want := sha256.Sum256([]byte(header + h.ItemHash([]workorder.DataItem{testItems[0], testItems[1]})))
	c.Assert(digest, qt.DeepEquals, want[:])
	c.Assert(result.OutData[0].Index, qt.Equals, 1)
}

func TestNonceDigest(t *testing.T) {
	t.Parallel()
	h := newTestHasher(t)
	qt.Assert(t, h.NonceDigest([]byte("nonce")), qt.Equals, b64sha256("nonce"))
}
