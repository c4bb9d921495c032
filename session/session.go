// Package session creates the one-time symmetric keys of a work order and
// delivers them to the worker.
//
// The session key is sealed to the worker encryption key (a nacl public key).
// Third parties owning a data item seal their data key to the worker as
// well, and the requester wraps that box once more under the session key, so
// that the requester cannot read the item while still binding the key to
// the work order.
package session

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/danintel/trusted-compute-framework/crypto"
	"github.com/danintel/trusted-compute-framework/crypto/aesgcm"
	"github.com/danintel/trusted-compute-framework/crypto/nacl"
	"github.com/danintel/trusted-compute-framework/util"
)

// Keys is the key material of a single work order.
type Keys struct {
	Key []byte
	IV  []byte
	// EncryptedKey is Key sealed to the worker encryption key.
	EncryptedKey []byte
}

// New generates a random session key and IV, and seals the key to the
// hexadecimal worker encryption key.
func New(workerEncryptionKey string) (*Keys, error) {
	return newKeys(nil, workerEncryptionKey)
}

func newKeys(randReader io.Reader, workerEncryptionKey string) (*Keys, error) {
	key, err := aesgcm.GenerateKey(randReader)
	if err != nil {
		return nil, err
	}
	iv, err := aesgcm.GenerateIV(randReader)
	if err != nil {
		return nil, err
	}
	encKey, err := nacl.Encrypt(key, workerEncryptionKey)
	if err != nil {
		return nil, err
	}
	return &Keys{Key: key, IV: iv, EncryptedKey: encKey}, nil
}

// Open recovers the session key sealed by New, using the worker cipher.
func Open(encryptedKey []byte, worker crypto.Cipher) ([]byte, error) {
	key, err := worker.Decrypt(encryptedKey)
	if err != nil {
		return nil, fmt.Errorf("cannot open session key: %w", err)
	}
	if len(key) != aesgcm.KeyLength {
		return nil, fmt.Errorf("session key length must be %d, not %d", aesgcm.KeyLength, len(key))
	}
	return key, nil
}

// SealDataKey seals a third party data key to the worker. It is run by the
// data owner.
func SealDataKey(dataKey []byte, workerEncryptionKey string) ([]byte, error) {
	return nacl.Encrypt(dataKey, workerEncryptionKey)
}

// WrapDataKey encrypts a sealed data key under the session key, and returns
// the hexadecimal value to place in encryptedDataEncryptionKey.
func WrapDataKey(sealedDataKey, sessionKey, sessionIV []byte) (string, error) {
	wrapped, err := aesgcm.Encrypt(sealedDataKey, sessionKey, sessionIV)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(wrapped), nil
}

// UnwrapDataKey reverses SealDataKey and WrapDataKey on the worker.
func UnwrapDataKey(encryptedDataEncryptionKey string, worker crypto.Cipher, sessionKey, sessionIV []byte) ([]byte, error) {
	wrapped, err := hex.DecodeString(util.TrimHex(encryptedDataEncryptionKey))
	if err != nil {
		return nil, fmt.Errorf("invalid encrypted data key: %w", err)
	}
	sealed, err := aesgcm.Decrypt(wrapped, sessionKey, sessionIV)
	if err != nil {
		return nil, fmt.Errorf("cannot unwrap data key: %w", err)
	}
	key, err := worker.Decrypt(sealed)
	if err != nil {
		return nil, fmt.Errorf("cannot open data key: %w", err)
	}
	return key, nil
}

// ParseIV decodes the iv of a data item. Empty means the all-zero IV.
func ParseIV(iv string) ([]byte, error) {
	if iv == "" {
		return aesgcm.ZeroIV(), nil
	}
	b, err := hex.DecodeString(util.TrimHex(iv))
	if err != nil {
		return nil, fmt.Errorf("invalid iv: %w", err)
	}
	if len(b) != aesgcm.IVLength {
		return nil, fmt.Errorf("iv length must be %d, not %d", aesgcm.IVLength, len(b))
	}
	return b, nil
}
