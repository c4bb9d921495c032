// Package signature implements the work order signing protocol: request
// signatures computed by requesters, result signatures computed by workers,
// and their verification.
package signature

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/danintel/trusted-compute-framework/config"
	"github.com/danintel/trusted-compute-framework/crypto"
	"github.com/danintel/trusted-compute-framework/crypto/aesgcm"
	"github.com/danintel/trusted-compute-framework/crypto/hashing"
	"github.com/danintel/trusted-compute-framework/crypto/secp256k1"
	"github.com/danintel/trusted-compute-framework/log"
	"github.com/danintel/trusted-compute-framework/types"
	"github.com/danintel/trusted-compute-framework/util"
	"github.com/danintel/trusted-compute-framework/workorder"
)

// NonceLength is the size of the random nonces, in bytes.
const NonceLength = 16

var (
	ErrInvalidPayload   = errors.New("invalid work order request")
	ErrHashingAlgorithm = errors.New("hashing algorithm not supported")
	ErrSigningAlgorithm = errors.New("signing algorithm not supported")
)

// Signer is a crypto.Signer able to export its public key as PEM.
type Signer interface {
	crypto.Signer
	PublicPEM() (string, error)
}

var _ Signer = (*secp256k1.SignKeys)(nil)

// Keys is the key material used to sign one request.
type Keys struct {
	Signer              Signer
	SessionKey          []byte
	SessionIV           []byte
	EncryptedSessionKey []byte
	// DataKey and DataIV encrypt the third party items, if any.
	DataKey []byte
	DataIV  []byte
}

// ClientSignature signs work order requests and verifies the results
// returned by workers. It is safe for concurrent use.
type ClientSignature struct {
	algorithms config.Algorithms
	hasher     *Hasher
	// randReader is the nonce source, crypto/rand if nil.
	randReader io.Reader
}

// NewClientSignature returns a ClientSignature enforcing the given algorithm
// policy.
func NewClientSignature(algorithms config.Algorithms) (*ClientSignature, error) {
	hash, err := hashing.New(algorithms.HashingAlgorithm)
	if err != nil {
		return nil, err
	}
	return &ClientSignature{algorithms: algorithms, hasher: NewHasher(hash)}, nil
}

// Hasher returns the digest builder in use.
func (cs *ClientSignature) Hasher() *Hasher { return cs.hasher }

func checkAlgorithms(local config.Algorithms, worker *workorder.WorkerDescriptor) error {
	if worker.HashingAlgorithm != local.HashingAlgorithm {
		log.Errorf("hashing algorithm %q of worker %s is not supported, expected %q",
			worker.HashingAlgorithm, worker.WorkerID, local.HashingAlgorithm)
		return ErrHashingAlgorithm
	}
	if worker.SigningAlgorithm != local.SigningAlgorithm {
		log.Errorf("signing algorithm %q of worker %s is not supported, expected %q",
			worker.SigningAlgorithm, worker.WorkerID, local.SigningAlgorithm)
		return ErrSigningAlgorithm
	}
	return nil
}

// GenerateClientSignature signs a WorkOrderSubmit JSON payload for the
// worker, and returns the signed payload. The inData items are encrypted,
// and sessionKeyIv, encryptedRequestHash, requesterSignature, verifyingKey,
// encryptedSessionKey and requesterNonce are set.
//
// Payload fields unknown to workorder.Params are dropped.
func (cs *ClientSignature) GenerateClientSignature(payload []byte,
	worker *workorder.WorkerDescriptor, keys *Keys) ([]byte, error) {
	if !workorder.Validate(payload) {
		log.Errorf("signing the request failed")
		return nil, ErrInvalidPayload
	}
	req := &workorder.Request{}
	if err := json.Unmarshal(payload, req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := cs.sign(req, worker, keys); err != nil {
		return nil, err
	}
	return json.Marshal(req)
}

// SignRequest is GenerateClientSignature for a decoded request. On success
// req.Params is replaced by the signed parameters; on error req is left as
// is.
//
// A decoded request cannot tell a missing requesterNonce or item index from
// its zero value, so only inData and the other string parameters are checked
// for presence.
func (cs *ClientSignature) SignRequest(req *workorder.Request,
	worker *workorder.WorkerDescriptor, keys *Keys) error {
	if req.Params == nil {
		return fmt.Errorf("%w: no params", ErrInvalidPayload)
	}
	if req.Params.InData == nil {
		return fmt.Errorf("%w: no inData", ErrInvalidPayload)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if !workorder.Validate(payload) {
		log.Errorf("signing the request failed")
		return ErrInvalidPayload
	}
	return cs.sign(req, worker, keys)
}

// sign signs a copy of req.Params, and only stores it in req once every step
// succeeded.
func (cs *ClientSignature) sign(req *workorder.Request, worker *workorder.WorkerDescriptor, keys *Keys) error {
	if err := checkAlgorithms(cs.algorithms, worker); err != nil {
		return err
	}
	if keys == nil || keys.Signer == nil {
		return errors.New("no signing key")
	}
	p := *req.Params
	p.InData = workorder.SortedItems(p.InData)
	p.OutData = workorder.SortedItems(p.OutData)
	p.SessionKeyIV = keys.SessionIV
	if err := EncryptItems(p.InData, keys.SessionKey, keys.SessionIV, keys.DataKey, keys.DataIV); err != nil {
		return err
	}

	nonce, err := util.RandomBytes(cs.randReader, NonceLength)
	if err != nil {
		return fmt.Errorf("cannot generate nonce: %w", err)
	}
	nonceDigest := cs.hasher.NonceDigest(nonce)
	digest := cs.hasher.RequestDigest(&p, []byte(nonceDigest))

	encDigest, err := aesgcm.Encrypt(digest, keys.SessionKey, keys.SessionIV)
	if err != nil {
		return fmt.Errorf("cannot encrypt request hash: %w", err)
	}
	sig, err := keys.Signer.Sign(digest)
	if err != nil {
		return err
	}
	verifyingKey, err := keys.Signer.PublicPEM()
	if err != nil {
		return err
	}

	p.EncryptedRequestHash = encDigest
	p.RequesterSignature = types.B64(sig)
	p.VerifyingKey = verifyingKey
	p.EncryptedSessionKey = keys.EncryptedSessionKey
	p.RequesterNonce = nonceDigest
	req.Params = &p

	SignaturesTotal.WithLabelValues("requester").Inc()
	log.Infof("work order %s request signed", p.WorkOrderID)
	return nil
}

// VerifySignature checks the worker signature of a JSON work order response.
// A response which cannot be decoded, or which has an error member, even a
// null one, is an error response.
func (cs *ClientSignature) VerifySignature(response []byte, worker *workorder.WorkerDescriptor) Status {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(response, &members); err != nil {
		log.Errorf("cannot decode work order response: %v", err)
		VerificationsTotal.WithLabelValues(StatusErrorResponse.String()).Inc()
		return StatusErrorResponse
	}
	if rpcErr, ok := members["error"]; ok {
		log.Debugf("work order response is an error: %s", rpcErr)
		VerificationsTotal.WithLabelValues(StatusErrorResponse.String()).Inc()
		return StatusErrorResponse
	}
	resp := &workorder.Response{}
	if err := json.Unmarshal(response, resp); err != nil {
		log.Errorf("cannot decode work order response: %v", err)
		VerificationsTotal.WithLabelValues(StatusErrorResponse.String()).Inc()
		return StatusErrorResponse
	}
	return cs.VerifyResult(resp, worker)
}

// VerifyResult is VerifySignature for a decoded response. The response is
// not modified.
func (cs *ClientSignature) VerifyResult(resp *workorder.Response, worker *workorder.WorkerDescriptor) Status {
	status := cs.verifyResult(resp, worker)
	VerificationsTotal.WithLabelValues(status.String()).Inc()
	return status
}

func (cs *ClientSignature) verifyResult(resp *workorder.Response, worker *workorder.WorkerDescriptor) Status {
	if err := checkAlgorithms(cs.algorithms, worker); err != nil {
		return StatusErrorResponse
	}
	if resp.Error != nil {
		log.Debugf("work order response %s is an error: %v", resp.ID, resp.Error)
		return StatusErrorResponse
	}
	result := resp.Result
	if result == nil {
		log.Warnf("work order response %s has no result", resp.ID)
		return StatusErrorResponse
	}
	if result.Code != nil && *result.Code < 0 {
		log.Debugf("work order %s result has error code %d", result.WorkOrderID, *result.Code)
		return StatusErrorResponse
	}
	digest := cs.hasher.ResponseDigest(result)
	return verifyDigest(digest, result.WorkerSignature, worker.VerificationKey)
}

func verifyDigest(digest []byte, signature, verificationKey string) Status {
	pub, err := secp256k1.ParsePublicKey(verificationKey)
	if err != nil {
		log.Infof("error in verification key: %v", err)
		return StatusInvalidVerificationKey
	}
	sig, err := types.FromB64(signature)
	if err != nil {
		log.Infof("signature is not base64: %v", err)
		return StatusInvalidSignatureFormat
	}
	ok, err := pub.Verify(digest, sig)
	switch {
	case errors.Is(err, secp256k1.ErrInvalidSignatureFormat):
		log.Infof("%v", err)
		return StatusInvalidSignatureFormat
	case err != nil:
		log.Warnf("signature verification error: %v", err)
		return StatusFailed
	case ok:
		return StatusPassed
	default:
		return StatusFailed
	}
}
