// Package hashing provides the digest functions a worker may advertise as its
// hashing algorithm.
package hashing

import (
	"crypto/sha256"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"

	"github.com/danintel/trusted-compute-framework/crypto"
)

const (
	// SHA256 is the default work order hashing algorithm.
	SHA256 = "SHA-256"
	// SHA3256 is the NIST SHA3-256 function.
	SHA3256 = "SHA3-256"
	// Keccak256 is the pre-standard Keccak function used by Ethereum.
	Keccak256 = "KECCAK-256"
)

type hashFunc struct {
	name string
	sum  func([]byte) []byte
}

func (h hashFunc) Hash(message []byte) []byte { return h.sum(message) }

func (h hashFunc) Name() string { return h.name }

var hashes = map[string]hashFunc{
	SHA256: {name: SHA256, sum: func(b []byte) []byte {
		sum := sha256.Sum256(b)
		return sum[:]
	}},
	SHA3256: {name: SHA3256, sum: func(b []byte) []byte {
		sum := sha3.Sum256(b)
		return sum[:]
	}},
	Keccak256: {name: Keccak256, sum: func(b []byte) []byte {
		return ethcrypto.Keccak256(b)
	}},
}

// New returns the hash function identified by name. Names are matched case
// insensitively.
func New(name string) (crypto.Hash, error) {
	h, ok := hashes[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported hashing algorithm %q", name)
	}
	return h, nil
}

// Supported returns the identifiers of the available hash functions.
func Supported() []string {
	return []string{SHA256, SHA3256, Keccak256}
}
