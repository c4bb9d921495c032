// Package cryptotest holds the property tests shared by the crypto
// implementations.
package cryptotest

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/danintel/trusted-compute-framework/crypto"
)

var messages = map[string][]byte{
	"Hello":    []byte("hello world"),
	"Empty":    {},
	"Accents":  []byte("UTF-8-charsàèìòù"),
	"NonText":  {0x01, 0x02, 0x03, 0x04},
	"DataItem": []byte(`{"index":0,"data":"aGVsbG8="}`),
}

// TestGenerateEncryptDecrypt checks that two generated ciphers differ, and
// that only the recipient opens what is sealed to it.
func TestGenerateEncryptDecrypt(t *testing.T, gen func() (crypto.Cipher, error)) {
	t.Parallel()
	c := qt.New(t)

	recipient, err := gen()
	c.Assert(err, qt.IsNil)
	other, err := gen()
	c.Assert(err, qt.IsNil)
	for _, k := range []crypto.Cipher{recipient, other} {
		c.Assert(k.Bytes(), qt.Not(qt.HasLen), 0)
		c.Assert(k.Public().Bytes(), qt.Not(qt.HasLen), 0)
		c.Assert(k.Public().Bytes(), qt.Not(qt.DeepEquals), k.Bytes())
	}
	c.Assert(recipient.Bytes(), qt.Not(qt.DeepEquals), other.Bytes())

	for name, message := range messages {
		message := message
		c.Run(name, func(c *qt.C) {
			c.Parallel()
			enc, err := recipient.Encrypt(message)
			c.Assert(err, qt.IsNil)
			_, err = other.Decrypt(enc)
			c.Assert(err, qt.Not(qt.IsNil))
			dec, err := recipient.Decrypt(enc)
			c.Assert(err, qt.IsNil)
			c.Assert(bytes.Equal(dec, message), qt.IsTrue, qt.Commentf("got %q", dec))
		})
	}
}

// TestSymmetric checks that messages encrypted under one key are recovered
// with that key and rejected with another one.
func TestSymmetric(t *testing.T, cipher crypto.SymmetricCipher, genKey func() ([]byte, error), iv []byte) {
	t.Parallel()
	c := qt.New(t)

	key1, err := genKey()
	c.Assert(err, qt.IsNil)
	key2, err := genKey()
	c.Assert(err, qt.IsNil)
	c.Assert(key1, qt.Not(qt.DeepEquals), key2)

	for name, message := range messages {
		message := message
		c.Run(name, func(c *qt.C) {
			c.Parallel()
			enc, err := cipher.Encrypt(message, key1, iv)
			c.Assert(err, qt.IsNil)
			if len(message) > 0 {
				c.Assert(bytes.Contains(enc, message), qt.IsFalse)
			}
			if dec, err := cipher.Decrypt(enc, key2, iv); err == nil {
				c.Assert(bytes.Equal(dec, message), qt.IsFalse)
			}
			dec, err := cipher.Decrypt(enc, key1, iv)
			c.Assert(err, qt.IsNil)
			c.Assert(bytes.Equal(dec, message), qt.IsTrue, qt.Commentf("got %q", dec))
		})
	}
}

// TestHash checks that hash is deterministic with a fixed digest size.
func TestHash(t *testing.T, hash crypto.Hash) {
	t.Parallel()
	c := qt.New(t)

	size := len(hash.Hash([]byte{0}))
	c.Assert(size, qt.Not(qt.Equals), 0)
	c.Assert(hash.Name(), qt.Not(qt.Equals), "")
	seen := make(map[string]string, len(messages))
	for name, message := range messages {
		sum := hash.Hash(message)
		c.Assert(sum, qt.HasLen, size, qt.Commentf("message %s", name))
		c.Assert(hash.Hash(message), qt.DeepEquals, sum)
		prev, dup := seen[string(sum)]
		c.Assert(dup, qt.IsFalse, qt.Commentf("%s and %s collide", name, prev))
		seen[string(sum)] = name
	}
}
