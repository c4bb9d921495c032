package signature

import (
	"bytes"
	"strings"

	"github.com/danintel/trusted-compute-framework/crypto"
	"github.com/danintel/trusted-compute-framework/types"
	"github.com/danintel/trusted-compute-framework/workorder"
)

// Hasher builds the canonical digests of work order requests and results.
//
// Intermediate hashes are concatenated in their base64 form, so the final
// digest is the hash of a printable string.
type Hasher struct {
	hash crypto.Hash
}

// NewHasher returns a Hasher using the given hash function.
func NewHasher(hash crypto.Hash) *Hasher {
	return &Hasher{hash: hash}
}

// NonceDigest hashes a raw nonce and returns it base64 encoded, the value
// sent as requesterNonce or workerNonce.
func (h *Hasher) NonceDigest(nonce []byte) string {
	return types.B64(h.hash.Hash(nonce))
}

// HeaderHash hashes nonceDigest, workOrderId, workerId, workloadId and
// requesterId concatenated in that order.
func (h *Hasher) HeaderHash(header *workorder.Header, nonceDigest []byte) string {
	var buf bytes.Buffer
	buf.Write(nonceDigest)
	buf.WriteString(header.WorkOrderID)
	buf.WriteString(header.WorkerID)
	buf.WriteString(header.WorkloadID)
	buf.WriteString(header.RequesterID)
	return types.B64(h.hash.Hash(buf.Bytes()))
}

// ItemHash hashes every item separately, in the given order, and returns the
// concatenation of the base64 hashes. Each item hash covers dataHash, data,
// encryptedDataEncryptionKey and iv.
func (h *Hasher) ItemHash(items []workorder.DataItem) string {
	var sb strings.Builder
	var buf bytes.Buffer
	for i := range items {
		buf.Reset()
		buf.WriteString(items[i].DataHash)
		buf.WriteString(items[i].Data)
		buf.WriteString(items[i].EncryptedDataEncryptionKey)
		buf.WriteString(items[i].IV)
		sb.WriteString(types.B64(h.hash.Hash(buf.Bytes())))
	}
	return sb.String()
}

// RequestDigest returns the digest signed by the requester. The inData and
// outData items are hashed sorted by index; params is not modified.
func (h *Hasher) RequestDigest(params *workorder.Params, nonceDigest []byte) []byte {
	var sb strings.Builder
	sb.WriteString(h.HeaderHash(&params.Header, nonceDigest))
	sb.WriteString(h.ItemHash(workorder.SortedItems(params.InData)))
	sb.WriteString(h.ItemHash(workorder.SortedItems(params.OutData)))
	return h.hash.Hash([]byte(sb.String()))
}

// ResponseDigest returns the digest signed by the worker. The workerNonce is
// already a digest and is used as is, unlike the requester nonce. The outData
// items are hashed sorted by index; result is not modified.
func (h *Hasher) ResponseDigest(result *workorder.Result) []byte {
	var sb strings.Builder
	sb.WriteString(h.HeaderHash(&result.Header, []byte(result.WorkerNonce)))
	sb.WriteString(h.ItemHash(workorder.SortedItems(result.OutData)))
	return h.hash.Hash([]byte(sb.String()))
}
