package session

import (
	"bytes"
	"encoding/hex"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/danintel/trusted-compute-framework/crypto/aesgcm"
	"github.com/danintel/trusted-compute-framework/crypto/nacl"
)

func TestSessionKeys(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	worker, err := nacl.Generate(nil)
	c.Assert(err, qt.IsNil)
	workerKey := hex.EncodeToString(worker.Public().Bytes())

	keys, err := New(workerKey)
	c.Assert(err, qt.IsNil)
	c.Assert(keys.Key, qt.HasLen, aesgcm.KeyLength)
	c.Assert(keys.IV, qt.HasLen, aesgcm.IVLength)

	key, err := Open(keys.EncryptedKey, worker)
	c.Assert(err, qt.IsNil)
	c.Assert(key, qt.DeepEquals, keys.Key)

	// another worker cannot open it
	other, err := nacl.Generate(nil)
	c.Assert(err, qt.IsNil)
	_, err = Open(keys.EncryptedKey, other)
	c.Assert(err, qt.ErrorMatches, "cannot open session key: .*")

	_, err = New("not a key")
	c.Assert(err, qt.ErrorMatches, "invalid encryption key: .*")
}

func TestDeterministicKeys(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	worker, err := nacl.Generate(nil)
	c.Assert(err, qt.IsNil)
	workerKey := hex.EncodeToString(worker.Public().Bytes())

	keys, err := newKeys(bytes.NewReader(bytes.Repeat([]byte{7}, 64)), workerKey)
	c.Assert(err, qt.IsNil)
	c.Assert(keys.Key, qt.DeepEquals, bytes.Repeat([]byte{7}, aesgcm.KeyLength))
	c.Assert(keys.IV, qt.DeepEquals, bytes.Repeat([]byte{7}, aesgcm.IVLength))

	// not enough entropy
	_, err = newKeys(bytes.NewReader([]byte{1, 2, 3}), workerKey)
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestDataKey(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	worker, err := nacl.Generate(nil)
	c.Assert(err, qt.IsNil)
	workerKey := hex.EncodeToString(worker.Public().Bytes())
	keys, err := New(workerKey)
	c.Assert(err, qt.IsNil)

	dataKey, err := aesgcm.GenerateKey(nil)
	c.Assert(err, qt.IsNil)
	sealed, err := SealDataKey(dataKey, workerKey)
	c.Assert(err, qt.IsNil)
	wrapped, err := WrapDataKey(sealed, keys.Key, keys.IV)
	c.Assert(err, qt.IsNil)

	got, err := UnwrapDataKey(wrapped, worker, keys.Key, keys.IV)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, dataKey)

	// a different session key cannot unwrap it
	_, err = UnwrapDataKey(wrapped, worker, bytes.Repeat([]byte{1}, aesgcm.KeyLength), keys.IV)
	c.Assert(err, qt.ErrorMatches, "cannot unwrap data key: .*")

	_, err = UnwrapDataKey("zz", worker, keys.Key, keys.IV)
	c.Assert(err, qt.ErrorMatches, "invalid encrypted data key: .*")
}

func TestParseIV(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	iv, err := ParseIV("")
	c.Assert(err, qt.IsNil)
	c.Assert(iv, qt.DeepEquals, aesgcm.ZeroIV())

	iv, err = ParseIV("0x000102030405060708090a0b")
	c.Assert(err, qt.IsNil)
	c.Assert(iv, qt.DeepEquals, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11})

	_, err = ParseIV("0001")
	c.Assert(err, qt.ErrorMatches, "iv length must be 12, not 2")
	_, err = ParseIV("xyz")
	c.Assert(err, qt.ErrorMatches, "invalid iv: .*")
}
