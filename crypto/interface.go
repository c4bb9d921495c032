// Package crypto holds the interfaces of the primitives the work order
// protocol is built on: hashing, AES-GCM for data items, secp256k1 for
// request and result signatures and nacl boxes for key delivery. The
// implementations live in the subpackages and take their randomness from
// crypto/rand.
package crypto

// PublicKey is the public half of an asymmetric key pair.
type PublicKey interface {
	Bytes() []byte
}

// PrivateKey is the private half of an asymmetric key pair.
type PrivateKey interface {
	Bytes() []byte
	Public() PublicKey
}

// KeyPair exposes the raw keys of a Signer.
type KeyPair interface {
	PublicKey() []byte
	PrivateKey() []byte
}

// Cipher decrypts what was sealed to its public key.
type Cipher interface {
	PrivateKey

	Encrypt(message []byte) ([]byte, error)
	Decrypt(cipher []byte) ([]byte, error)
}

// Signer signs messages and verifies its own signatures.
type Signer interface {
	KeyPair

	Sign(message []byte) ([]byte, error)
	Verify(message, signature []byte) (bool, error)
}

// SymmetricCipher encrypts and decrypts with a caller provided key and
// initialization vector. A nil iv selects the all-zero IV of the required
// length.
type SymmetricCipher interface {
	Encrypt(message, key, iv []byte) ([]byte, error)
	Decrypt(cipher, key, iv []byte) ([]byte, error)
}

// Hash is a named digest algorithm.
type Hash interface {
	Hash(message []byte) []byte
	// Name returns the algorithm identifier, as advertised by workers.
	Name() string
}
