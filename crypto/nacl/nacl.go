// Package nacl seals messages to curve25519 public keys with anonymous
// boxes, using golang.org/x/crypto/nacl/box. Workers publish the public key
// of their Cipher as workerEncryptionKey and requesters seal the work order
// session key to it.
package nacl

import (
	cryptorand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	"github.com/danintel/trusted-compute-framework/crypto"
	"github.com/danintel/trusted-compute-framework/util"
)

// KeyLength is the size of public and private keys.
const KeyLength = 32

// ErrOpen is returned when a sealed box cannot be opened with the key.
var ErrOpen = errors.New("could not open box")

func decodeKey(hexkey string) (*[KeyLength]byte, error) {
	b, err := hex.DecodeString(util.TrimHex(hexkey))
	if err != nil {
		return nil, err
	}
	if len(b) != KeyLength {
		return nil, fmt.Errorf("key length must be %d, not %d", KeyLength, len(b))
	}
	var k [KeyLength]byte
	copy(k[:], b)
	return &k, nil
}

// PublicKey is the key messages are sealed to.
type PublicKey [KeyLength]byte

// DecodePublic parses a hexadecimal public key, with or without 0x.
func DecodePublic(hexkey string) (*PublicKey, error) {
	k, err := decodeKey(hexkey)
	if err != nil {
		return nil, err
	}
	return (*PublicKey)(k), nil
}

// Bytes implements crypto.PublicKey.
func (pub *PublicKey) Bytes() []byte { return pub[:] }

func (pub *PublicKey) String() string { return hex.EncodeToString(pub[:]) }

// Encrypt seals message to pub. Each call uses a fresh ephemeral key, so the
// same message never gives the same ciphertext.
func (pub *PublicKey) Encrypt(message []byte) ([]byte, error) {
	return box.SealAnonymous(nil, message, (*[KeyLength]byte)(pub), cryptorand.Reader)
}

// Encrypt seals message to the hexadecimal public key pubHex.
func Encrypt(message []byte, pubHex string) ([]byte, error) {
	pub, err := DecodePublic(pubHex)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	return pub.Encrypt(message)
}

// keyPair is the crypto.Cipher of a worker.
type keyPair struct {
	priv [KeyLength]byte
	pub  PublicKey
}

func newKeyPair(priv *[KeyLength]byte) (*keyPair, error) {
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	kp := &keyPair{priv: *priv}
	copy(kp.pub[:], pub)
	return kp, nil
}

// Generate returns a new Cipher with a private key read from randReader,
// crypto/rand if nil.
func Generate(randReader io.Reader) (crypto.Cipher, error) {
	if randReader == nil {
		randReader = cryptorand.Reader
	}
	var priv [KeyLength]byte
	if _, err := io.ReadFull(randReader, priv[:]); err != nil {
		return nil, err
	}
	return newKeyPair(&priv)
}

// DecodePrivate returns the Cipher of a hexadecimal private key.
func DecodePrivate(hexkey string) (crypto.Cipher, error) {
	priv, err := decodeKey(hexkey)
	if err != nil {
		return nil, err
	}
	return newKeyPair(priv)
}

func (kp *keyPair) Bytes() []byte { return kp.priv[:] }

func (kp *keyPair) Public() crypto.PublicKey { return &kp.pub }

func (kp *keyPair) Encrypt(message []byte) ([]byte, error) { return kp.pub.Encrypt(message) }

func (kp *keyPair) Decrypt(sealed []byte) ([]byte, error) {
	message, ok := box.OpenAnonymous(nil, sealed, (*[KeyLength]byte)(&kp.pub), &kp.priv)
	if !ok {
		return nil, ErrOpen
	}
	return message, nil
}
