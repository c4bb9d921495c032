// Package types holds the small wire encodings shared by the work order
// payloads.
package types

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// HexBytes is a []byte encoded in JSON as a hexadecimal string rather than
// base64. Session keys, IVs and the encrypted request hash travel this way.
// A 0x prefix is accepted when decoding.
type HexBytes []byte

func (b HexBytes) String() string {
	return hex.EncodeToString(b)
}

// MarshalJSON implements json.Marshaler.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(b))
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// B64 returns the standard base64 encoding of data, the encoding of data
// items and detached signatures.
func B64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// FromB64 decodes a standard base64 string.
func FromB64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
