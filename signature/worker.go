package signature

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/danintel/trusted-compute-framework/config"
	"github.com/danintel/trusted-compute-framework/crypto/aesgcm"
	"github.com/danintel/trusted-compute-framework/crypto/hashing"
	"github.com/danintel/trusted-compute-framework/log"
	"github.com/danintel/trusted-compute-framework/types"
	"github.com/danintel/trusted-compute-framework/util"
	"github.com/danintel/trusted-compute-framework/workorder"
)

// ErrRequestHashMismatch is returned when the encryptedRequestHash of a
// request does not match its recomputed digest.
var ErrRequestHashMismatch = errors.New("encrypted request hash does not match")

// WorkerSignature is the worker side of the protocol: it checks requester
// signatures and signs results.
type WorkerSignature struct {
	algorithms config.Algorithms
	hasher     *Hasher
	signer     Signer
	randReader io.Reader
}

// NewWorkerSignature returns a WorkerSignature signing results with signer.
func NewWorkerSignature(algorithms config.Algorithms, signer Signer) (*WorkerSignature, error) {
	hash, err := hashing.New(algorithms.HashingAlgorithm)
	if err != nil {
		return nil, err
	}
	return &WorkerSignature{algorithms: algorithms, hasher: NewHasher(hash), signer: signer}, nil
}

// Algorithms returns the algorithm policy of the worker.
func (ws *WorkerSignature) Algorithms() config.Algorithms { return ws.algorithms }

// VerifyRequest checks the requesterSignature of a signed request against
// its verifyingKey.
func (ws *WorkerSignature) VerifyRequest(req *workorder.Request) Status {
	status := ws.verifyRequest(req)
	VerificationsTotal.WithLabelValues(status.String()).Inc()
	return status
}

func (ws *WorkerSignature) verifyRequest(req *workorder.Request) Status {
	p := req.Params
	if p == nil {
		return StatusErrorResponse
	}
	// requesterNonce is sent already hashed
	digest := ws.hasher.RequestDigest(p, []byte(p.RequesterNonce))
	return verifyDigest(digest, p.RequesterSignature, p.VerifyingKey)
}

// CheckRequestHash decrypts encryptedRequestHash with the session key and
// compares it with the digest of the request.
func (ws *WorkerSignature) CheckRequestHash(req *workorder.Request, sessionKey []byte) error {
	p := req.Params
	if p == nil {
		return fmt.Errorf("%w: no params", ErrInvalidPayload)
	}
	got, err := aesgcm.Decrypt(p.EncryptedRequestHash, sessionKey, p.SessionKeyIV)
	if err != nil {
		return fmt.Errorf("cannot decrypt request hash: %w", err)
	}
	want := ws.hasher.RequestDigest(p, []byte(p.RequesterNonce))
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrRequestHashMismatch
	}
	return nil
}

// SignResult sorts the outData of the result, sets a fresh workerNonce and
// signs the response digest into workerSignature.
func (ws *WorkerSignature) SignResult(result *workorder.Result) error {
	workorder.SortItems(result.OutData)
	nonce, err := util.RandomBytes(ws.randReader, NonceLength)
	if err != nil {
		return fmt.Errorf("cannot generate nonce: %w", err)
	}
	result.WorkerNonce = ws.hasher.NonceDigest(nonce)
	sig, err := ws.signer.Sign(ws.hasher.ResponseDigest(result))
	if err != nil {
		return err
	}
	result.WorkerSignature = types.B64(sig)
	SignaturesTotal.WithLabelValues("worker").Inc()
	log.Debugf("work order %s result signed", result.WorkOrderID)
	return nil
}
