// Package util holds small helpers shared by the key handling code.
package util

import (
	cryptorand "crypto/rand"
	"encoding/hex"
	"io"
)

// TrimHex removes a leading 0x or 0X.
func TrimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// RandomBytes reads n bytes from randReader, crypto/rand if nil.
func RandomBytes(randReader io.Reader, n int) ([]byte, error) {
	if randReader == nil {
		randReader = cryptorand.Reader
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// RandomHex returns n random bytes, hex encoded. It panics if the system
// entropy source fails.
func RandomHex(n int) string {
	b, err := RandomBytes(nil, n)
	if err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
