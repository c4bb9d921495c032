package types

import (
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestRequestIDKeepsForm(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	for _, raw := range []string{`11`, `"11"`, `"a1b2"`, `-3`, `1.5e3`} {
		var id RequestID
		c.Assert(json.Unmarshal([]byte(raw), &id), qt.IsNil, qt.Commentf("id %s", raw))
		c.Assert(id.IsNumber(), qt.Equals, raw[0] != '"')
		encoded, err := json.Marshal(id)
		c.Assert(err, qt.IsNil)
		c.Assert(string(encoded), qt.Equals, raw)
	}

	var num, str RequestID
	c.Assert(json.Unmarshal([]byte(`11`), &num), qt.IsNil)
	c.Assert(json.Unmarshal([]byte(`"11"`), &str), qt.IsNil)
	c.Assert(num.String(), qt.Equals, str.String())
	c.Assert(num, qt.Not(qt.Equals), str)
	c.Assert(num, qt.Equals, NumberID(11))
	c.Assert(str, qt.Equals, StringID("11"))
}

func TestRequestIDInvalid(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	for _, raw := range []string{`true`, `{}`, `[1]`} {
		var id RequestID
		c.Assert(json.Unmarshal([]byte(raw), &id), qt.Not(qt.IsNil), qt.Commentf("id %s", raw))
	}

	var env struct {
		ID RequestID `json:"id"`
	}
	c.Assert(json.Unmarshal([]byte(`{"id":null}`), &env), qt.IsNil)
	c.Assert(env.ID.IsZero(), qt.IsTrue)
	encoded, err := json.Marshal(env)
	c.Assert(err, qt.IsNil)
	c.Assert(string(encoded), qt.Equals, `{"id":""}`)
}
