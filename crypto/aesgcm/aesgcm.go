// Package aesgcm implements the symmetric data encryption of work orders:
// AES-256 in Galois/Counter Mode with an explicit initialization vector. The
// authentication tag is appended to the ciphertext.
package aesgcm

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"

	"github.com/danintel/trusted-compute-framework/crypto"
	"github.com/danintel/trusted-compute-framework/util"
)

const (
	// KeyLength is the size in bytes of session and data keys.
	KeyLength = 32
	// IVLength is the size in bytes of the GCM initialization vector.
	IVLength = 12
	// Algorithm is the data encryption algorithm identifier.
	Algorithm = "AES-GCM-256"
)

// Cipher implements crypto.SymmetricCipher.
type Cipher struct{}

var _ crypto.SymmetricCipher = Cipher{}

// ZeroIV returns the all-zero IV used when none is provided.
func ZeroIV() []byte { return make([]byte, IVLength) }

func newAEAD(key, iv []byte) (cipher.AEAD, []byte, error) {
	if len(key) != KeyLength {
		return nil, nil, fmt.Errorf("key length must be %d, not %d", KeyLength, len(key))
	}
	if iv == nil {
		iv = ZeroIV()
	}
	if len(iv) != IVLength {
		return nil, nil, fmt.Errorf("iv length must be %d, not %d", IVLength, len(iv))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	return aead, iv, nil
}

// Encrypt seals message under key and iv.
func (Cipher) Encrypt(message, key, iv []byte) ([]byte, error) {
	aead, iv, err := newAEAD(key, iv)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, iv, message, nil), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func (Cipher) Decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	aead, iv, err := newAEAD(key, iv)
	if err != nil {
		return nil, err
	}
	message, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot decrypt: %w", err)
	}
	return message, nil
}

// Encrypt is a shorthand for Cipher{}.Encrypt.
func Encrypt(message, key, iv []byte) ([]byte, error) { return Cipher{}.Encrypt(message, key, iv) }

// Decrypt is a shorthand for Cipher{}.Decrypt.
func Decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	return Cipher{}.Decrypt(ciphertext, key, iv)
}

// GenerateKey creates a random key. If randReader is nil, crypto/rand.Reader
// is used.
func GenerateKey(randReader io.Reader) ([]byte, error) {
	return util.RandomBytes(randReader, KeyLength)
}

// GenerateIV creates a random initialization vector. If randReader is nil,
// crypto/rand.Reader is used.
func GenerateIV(randReader io.Reader) ([]byte, error) {
	return util.RandomBytes(randReader, IVLength)
}
