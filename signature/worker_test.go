package signature

import (
	"encoding/hex"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/danintel/trusted-compute-framework/config"
	"github.com/danintel/trusted-compute-framework/crypto/aesgcm"
	"github.com/danintel/trusted-compute-framework/session"
	"github.com/danintel/trusted-compute-framework/types"
	"github.com/danintel/trusted-compute-framework/workorder"
)

func TestWorkerVerifyRequest(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	f := newFixture(t)

	req := f.sign(t)
	c.Assert(f.workerSig.VerifyRequest(req), qt.Equals, StatusPassed)

	key, err := session.Open(req.Params.EncryptedSessionKey, f.workerCipher)
	c.Assert(err, qt.IsNil)
	c.Assert(f.workerSig.CheckRequestHash(req, key), qt.IsNil)

	// the worker recovers the inData
	c.Assert(DecryptItems(req.Params.InData, key, req.Params.SessionKeyIV, nil), qt.IsNil)
	c.Assert(req.Params.InData[0].Data, qt.Equals, "first")
	c.Assert(req.Params.InData[1].Data, qt.Equals, "second")
	// which breaks the request signature
	c.Assert(f.workerSig.VerifyRequest(req), qt.Equals, StatusFailed)
}

func TestWorkerVerifyTamperedRequest(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	f := newFixture(t)

	req := f.sign(t)
	req.Params.RequesterID = "0x6666"
	c.Assert(f.workerSig.VerifyRequest(req), qt.Equals, StatusFailed)
	c.Assert(f.workerSig.CheckRequestHash(req, f.keys.SessionKey), qt.ErrorIs, ErrRequestHashMismatch)

	c.Assert(f.workerSig.CheckRequestHash(req, aesgcm.ZeroIV()), qt.ErrorMatches, "cannot decrypt request hash: .*")

	req.Params.VerifyingKey = "bogus"
	c.Assert(f.workerSig.VerifyRequest(req), qt.Equals, StatusInvalidVerificationKey)
	c.Assert(f.workerSig.VerifyRequest(&workorder.Request{}), qt.Equals, StatusErrorResponse)
}

func TestThirdPartyDataKey(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	f := newFixture(t)

	// the data owner seals its key to the worker, the requester wraps it
	dataKey, err := aesgcm.GenerateKey(nil)
	c.Assert(err, qt.IsNil)
	dataIV, err := aesgcm.GenerateIV(nil)
	c.Assert(err, qt.IsNil)
	sealed, err := session.SealDataKey(dataKey, f.worker.EncryptionKey)
	c.Assert(err, qt.IsNil)
	wrapped, err := session.WrapDataKey(sealed, f.keys.SessionKey, f.keys.SessionIV)
	c.Assert(err, qt.IsNil)

	req := workorder.NewRequest(types.NumberID(12), &workorder.Params{
		Header: workorder.Header{WorkOrderID: "0x99", WorkerID: "worker-1", RequesterID: "0x3456"},
		InData: []workorder.DataItem{
			{Index: 0, Data: "owned by a third party", EncryptedDataEncryptionKey: wrapped, IV: hex.EncodeToString(dataIV)},
			{Index: 1, Data: "from the requester"},
		},
	})
	keys := *f.keys
	keys.DataKey, keys.DataIV = dataKey, dataIV
	c.Assert(f.client.SignRequest(req, f.worker, &keys), qt.IsNil)
	c.Assert(f.workerSig.VerifyRequest(req), qt.Equals, StatusPassed)

	sessionKey, err := session.Open(req.Params.EncryptedSessionKey, f.workerCipher)
	c.Assert(err, qt.IsNil)
	resolve := func(item *workorder.DataItem) ([]byte, []byte, error) {
		key, err := session.UnwrapDataKey(item.EncryptedDataEncryptionKey, f.workerCipher,
			sessionKey, req.Params.SessionKeyIV)
		if err != nil {
			return nil, nil, err
		}
		iv, err := session.ParseIV(item.IV)
		return key, iv, err
	}
	c.Assert(DecryptItems(req.Params.InData, sessionKey, req.Params.SessionKeyIV, resolve), qt.IsNil)
	c.Assert(req.Params.InData[0].Data, qt.Equals, "owned by a third party")
	c.Assert(req.Params.InData[1].Data, qt.Equals, "from the requester")
}

func TestSignResult(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	f := newFixture(t)

	result := &workorder.Result{
		Header:  workorder.Header{WorkOrderID: "0x1", WorkerID: "worker-1", RequesterID: "0x2"},
		OutData: []workorder.DataItem{{Index: 2, Data: "Yg=="}, {Index: 1, Data: "YQ=="}},
	}
	c.Assert(f.workerSig.SignResult(result), qt.IsNil)
	c.Assert(result.OutData[0].Index, qt.Equals, 1)
	c.Assert(result.WorkerNonce, qt.HasLen, 44)
	nonce := result.WorkerNonce

	c.Assert(f.workerSig.SignResult(result), qt.IsNil)
	c.Assert(result.WorkerNonce, qt.Not(qt.Equals), nonce)

	_, err := NewWorkerSignature(config.Algorithms{HashingAlgorithm: "MD5"}, nil)
	c.Assert(err, qt.Not(qt.IsNil))
	c.Assert(f.workerSig.Algorithms(), qt.Equals, config.DefaultAlgorithms())
}
