package types

import (
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestHexBytes(t *testing.T) {
	c := qt.New(t)
	input := HexBytes("hello world")

	encoded, err := json.Marshal(input)
	c.Assert(err, qt.IsNil)
	c.Assert(string(encoded), qt.Equals, `"68656c6c6f20776f726c64"`)
	c.Assert(input.String(), qt.Equals, "68656c6c6f20776f726c64")

	var decoded HexBytes
	c.Assert(json.Unmarshal(encoded, &decoded), qt.IsNil)
	c.Assert(string(decoded), qt.Equals, string(input))
}

func TestHexBytesReuse(t *testing.T) {
	c := qt.New(t)
	// decoding into a value with a larger capacity must not keep stale bytes
	b := make(HexBytes, 0, 32)
	c.Assert(json.Unmarshal([]byte(`"0x0102"`), &b), qt.IsNil)
	c.Assert([]byte(b), qt.DeepEquals, []byte{1, 2})

	c.Assert(json.Unmarshal([]byte(`"zz"`), &b), qt.Not(qt.IsNil))
	c.Assert(json.Unmarshal([]byte(`12`), &b), qt.Not(qt.IsNil))
}

func TestB64(t *testing.T) {
	c := qt.New(t)
	s := B64([]byte("work order"))
	c.Assert(s, qt.Equals, "d29yayBvcmRlcg==")
	d, err := FromB64(s)
	c.Assert(err, qt.IsNil)
	c.Assert(string(d), qt.Equals, "work order")
}
