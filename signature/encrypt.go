package signature

import (
	"errors"
	"fmt"

	"github.com/danintel/trusted-compute-framework/crypto/aesgcm"
	"github.com/danintel/trusted-compute-framework/log"
	"github.com/danintel/trusted-compute-framework/types"
	"github.com/danintel/trusted-compute-framework/workorder"
)

// ErrNoDataKey is returned when an item asks for a third party key but none
// was provided.
var ErrNoDataKey = errors.New("no data encryption key for third party item")

// EncryptItems sorts items by index and then replaces the data of each one
// with its base64 encoded ciphertext, according to the item key policy:
// session key items use sessionKey and sessionIV, third party items use
// dataKey and dataIV, and clear text items are only base64 encoded.
//
// Running it twice encrypts twice.
func EncryptItems(items []workorder.DataItem, sessionKey, sessionIV, dataKey, dataIV []byte) error {
	workorder.SortItems(items)
	for i := range items {
		item := &items[i]
		plain := []byte(item.Data)
		var key, iv []byte
		switch item.Policy() {
		case workorder.PolicyClear:
			item.Data = types.B64(plain)
			continue
		case workorder.PolicySessionKey:
			key, iv = sessionKey, sessionIV
		case workorder.PolicyThirdPartyKey:
			if dataKey == nil {
				return fmt.Errorf("item %d: %w", item.Index, ErrNoDataKey)
			}
			key, iv = dataKey, dataIV
		}
		enc, err := aesgcm.Encrypt(plain, key, iv)
		if err != nil {
			return fmt.Errorf("cannot encrypt item %d: %w", item.Index, err)
		}
		item.Data = types.B64(enc)
	}
	log.Debugf("encrypted %d data items", len(items))
	return nil
}

// DataKeyFunc resolves the key and IV of a third party item.
type DataKeyFunc func(item *workorder.DataItem) (key, iv []byte, err error)

// DecryptItems reverses EncryptItems in place, leaving the plaintext in the
// data of every item. Third party keys are resolved through dataKey.
func DecryptItems(items []workorder.DataItem, sessionKey, sessionIV []byte, dataKey DataKeyFunc) error {
	for i := range items {
		item := &items[i]
		raw, err := types.FromB64(item.Data)
		if err != nil {
			return fmt.Errorf("item %d data is not base64: %w", item.Index, err)
		}
		var key, iv []byte
		switch item.Policy() {
		case workorder.PolicyClear:
			item.Data = string(raw)
			continue
		case workorder.PolicySessionKey:
			key, iv = sessionKey, sessionIV
		case workorder.PolicyThirdPartyKey:
			if dataKey == nil {
				return fmt.Errorf("item %d: %w", item.Index, ErrNoDataKey)
			}
			if key, iv, err = dataKey(item); err != nil {
				return fmt.Errorf("item %d: %w", item.Index, err)
			}
		}
		plain, err := aesgcm.Decrypt(raw, key, iv)
		if err != nil {
			return fmt.Errorf("cannot decrypt item %d: %w", item.Index, err)
		}
		item.Data = string(plain)
	}
	return nil
}
