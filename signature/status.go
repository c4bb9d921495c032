package signature

// Status is the outcome of a signature verification. Every verification
// returns exactly one of them.
type Status int

const (
	// StatusErrorResponse is returned for error responses, negative result
	// codes, undecodable responses and algorithm mismatches.
	StatusErrorResponse Status = iota
	// StatusInvalidVerificationKey means the verification key could not be
	// parsed, which points to a registry or configuration problem.
	StatusInvalidVerificationKey
	StatusPassed
	// StatusFailed means a well-formed signature did not match the digest.
	StatusFailed
	// StatusInvalidSignatureFormat means the signature bytes could not be
	// decoded.
	StatusInvalidSignatureFormat
)

func (s Status) String() string {
	switch s {
	case StatusErrorResponse:
		return "ERROR_RESPONSE"
	case StatusInvalidVerificationKey:
		return "INVALID_VERIFICATION_KEY"
	case StatusPassed:
		return "PASSED"
	case StatusFailed:
		return "FAILED"
	case StatusInvalidSignatureFormat:
		return "INVALID_SIGNATURE_FORMAT"
	default:
		return "UNKNOWN"
	}
}
