package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RequestID is a JSON-RPC request id. Ids can be strings or numbers, and a
// RequestID encodes back to the same form it was decoded from, so that
// responses echo the id exactly as the caller sent it. A null or missing id
// is the zero value, which encodes as an empty string.
type RequestID struct {
	value  string
	number bool
}

// StringID returns a string request id.
func StringID(s string) RequestID {
	return RequestID{value: s}
}

// NumberID returns a numeric request id.
func NumberID(n int64) RequestID {
	return RequestID{value: strconv.FormatInt(n, 10), number: true}
}

// String returns the id as text. Numbers are returned as they were written.
func (id RequestID) String() string {
	return id.value
}

// IsNumber reports whether the id is encoded as a JSON number.
func (id RequestID) IsNumber() bool {
	return id.number
}

// IsZero reports whether the id is unset.
func (id RequestID) IsZero() bool {
	return id.value == ""
}

// Equal reports whether both ids have the same value and form.
func (id RequestID) Equal(other RequestID) bool {
	return id == other
}

// MarshalJSON implements json.Marshaler.
func (id RequestID) MarshalJSON() ([]byte, error) {
	if id.number {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *RequestID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = RequestID{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RequestID{value: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("request id must be a string or a number: %w", err)
	}
	*id = RequestID{value: n.String(), number: true}
	return nil
}
