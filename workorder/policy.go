package workorder

// KeyPolicy selects which key protects the data of an item.
type KeyPolicy int

const (
	// PolicySessionKey encrypts with the work order session key.
	PolicySessionKey KeyPolicy = iota
	// PolicyClear leaves the data unencrypted, only base64 encoded.
	PolicyClear
	// PolicyThirdPartyKey encrypts with a one-time key of the data owner,
	// delivered double encrypted in encryptedDataEncryptionKey.
	PolicyThirdPartyKey
)

// ClearText is the encryptedDataEncryptionKey value of unencrypted items.
const ClearText = "-"

// ParseKeyPolicy maps an encryptedDataEncryptionKey value to its policy.
// Empty and "null" select the session key.
func ParseKeyPolicy(encryptedDataEncryptionKey string) KeyPolicy {
	switch encryptedDataEncryptionKey {
	case "", "null":
		return PolicySessionKey
	case ClearText:
		return PolicyClear
	default:
		return PolicyThirdPartyKey
	}
}

func (p KeyPolicy) String() string {
	switch p {
	case PolicySessionKey:
		return "session-key"
	case PolicyClear:
		return "clear"
	case PolicyThirdPartyKey:
		return "third-party-key"
	default:
		return "unknown"
	}
}
