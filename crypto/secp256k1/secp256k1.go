// Package secp256k1 provides the ECDSA secp256k1 signatures used by
// requesters and workers to sign work order digests.
//
// Keys are generated and imported with go-ethereum, while signatures are
// produced in the ASN.1 DER format using the decred secp256k1 implementation.
// Messages are hashed with SHA-256 before being signed.
package secp256k1

import (
	"crypto/sha256"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	dcrsecp "github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/danintel/trusted-compute-framework/crypto"
	"github.com/danintel/trusted-compute-framework/util"
)

// Algorithm is the signing algorithm identifier advertised by workers.
const Algorithm = "SECP256K1"

// pemType is the PEM block type of an encoded public key.
const pemType = "PUBLIC KEY"

var (
	// ErrInvalidSignatureFormat is returned by Verify when the signature
	// cannot be parsed as a DER encoded ECDSA signature.
	ErrInvalidSignatureFormat = errors.New("invalid signature format")
	// ErrNoPrivateKey is returned when signing with public-only keys.
	ErrNoPrivateKey = errors.New("no private key available")

	oidPublicKeyECDSA      = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	oidNamedCurveSecp256k1 = asn1.ObjectIdentifier{1, 3, 132, 0, 10}
)

// SignKeys represents an ECDSA secp256k1 key pair for signing.
type SignKeys struct {
	private *dcrsecp.PrivateKey
}

var _ crypto.Signer = (*SignKeys)(nil)

// Generate generates new keys
func (k *SignKeys) Generate() error {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return err
	}
	k.private = dcrsecp.PrivKeyFromBytes(ethcrypto.FromECDSA(key))
	return nil
}

// AddHexKey imports a private hex key
func (k *SignKeys) AddHexKey(privHex string) error {
	key, err := ethcrypto.HexToECDSA(util.TrimHex(privHex))
	if err != nil {
		return err
	}
	k.private = dcrsecp.PrivKeyFromBytes(ethcrypto.FromECDSA(key))
	return nil
}

// PublicKey returns the compressed public key bytes.
func (k *SignKeys) PublicKey() []byte {
	if k.private == nil {
		return nil
	}
	return k.private.PubKey().SerializeCompressed()
}

// PrivateKey returns the private key bytes.
func (k *SignKeys) PrivateKey() []byte {
	if k.private == nil {
		return nil
	}
	return k.private.Serialize()
}

// HexString returns the public compressed and private keys as hex strings
func (k *SignKeys) HexString() (string, string) {
	return hex.EncodeToString(k.PublicKey()), hex.EncodeToString(k.PrivateKey())
}

// Public returns the verifying half of the key pair.
func (k *SignKeys) Public() *PublicKey {
	if k.private == nil {
		return nil
	}
	return &PublicKey{key: k.private.PubKey()}
}

// PublicPEM returns the public key as a PEM encoded SubjectPublicKeyInfo.
func (k *SignKeys) PublicPEM() (string, error) {
	if k.private == nil {
		return "", ErrNoPrivateKey
	}
	return k.Public().PEM()
}

// Sign signs a message. The message is hashed with SHA-256 and the DER
// encoded signature is returned.
func (k *SignKeys) Sign(message []byte) ([]byte, error) {
	if k.private == nil {
		return nil, ErrNoPrivateKey
	}
	digest := sha256.Sum256(message)
	return dcrecdsa.Sign(k.private, digest[:]).Serialize(), nil
}

// Verify verifies a message signed with this key pair.
func (k *SignKeys) Verify(message, signature []byte) (bool, error) {
	if k.private == nil {
		return false, ErrNoPrivateKey
	}
	return k.Public().Verify(message, signature)
}

// PublicKey is a secp256k1 verification key.
type PublicKey struct {
	key *dcrsecp.PublicKey
}

// Bytes returns the compressed encoding of the key.
func (p *PublicKey) Bytes() []byte { return p.key.SerializeCompressed() }

// Verify checks a DER signature over the SHA-256 hash of message. A
// signature which cannot be parsed yields ErrInvalidSignatureFormat, a
// well-formed signature which does not match yields false.
func (p *PublicKey) Verify(message, signature []byte) (bool, error) {
	sig, err := dcrecdsa.ParseDERSignature(signature)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidSignatureFormat, err)
	}
	digest := sha256.Sum256(message)
	return sig.Verify(digest[:], p.key), nil
}

type publicKeyInfo struct {
	Algorithm pkix.AlgorithmIdentifier
	PublicKey asn1.BitString
}

// PEM returns the key as a PEM encoded SubjectPublicKeyInfo, the format
// x509 tooling uses for EC public keys.
func (p *PublicKey) PEM() (string, error) {
	params, err := asn1.Marshal(oidNamedCurveSecp256k1)
	if err != nil {
		return "", err
	}
	point := p.key.SerializeUncompressed()
	der, err := asn1.Marshal(publicKeyInfo{
		Algorithm: pkix.AlgorithmIdentifier{
			Algorithm:  oidPublicKeyECDSA,
			Parameters: asn1.RawValue{FullBytes: params},
		},
		PublicKey: asn1.BitString{Bytes: point, BitLength: 8 * len(point)},
	})
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: pemType, Bytes: der})), nil
}

// ParsePublicKey decodes a verification key. Both PEM encoded
// SubjectPublicKeyInfo and hexadecimal (compressed or uncompressed) keys are
// accepted.
func ParsePublicKey(s string) (*PublicKey, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-----BEGIN") {
		return parsePEM(s)
	}
	b, err := hex.DecodeString(util.TrimHex(s))
	if err != nil {
		return nil, fmt.Errorf("cannot decode public key: %w", err)
	}
	pub, err := dcrsecp.ParsePubKey(b)
	if err != nil {
		return nil, err
	}
	return &PublicKey{key: pub}, nil
}

func parsePEM(s string) (*PublicKey, error) {
	block, _ := pem.Decode([]byte(s))
	if block == nil || block.Type != pemType {
		return nil, fmt.Errorf("no %s PEM block found", pemType)
	}
	var info publicKeyInfo
	rest, err := asn1.Unmarshal(block.Bytes, &info)
	if err != nil {
		return nil, fmt.Errorf("cannot parse public key info: %w", err)
	}
	if len(rest) > 0 {
		return nil, errors.New("trailing data after public key info")
	}
	if !info.Algorithm.Algorithm.Equal(oidPublicKeyECDSA) {
		return nil, fmt.Errorf("unexpected public key algorithm %s", info.Algorithm.Algorithm)
	}
	var curve asn1.ObjectIdentifier
	if _, err := asn1.Unmarshal(info.Algorithm.Parameters.FullBytes, &curve); err != nil {
		return nil, fmt.Errorf("cannot parse curve parameters: %w", err)
	}
	if !curve.Equal(oidNamedCurveSecp256k1) {
		return nil, fmt.Errorf("unexpected curve %s", curve)
	}
	pub, err := dcrsecp.ParsePubKey(info.PublicKey.RightAlign())
	if err != nil {
		return nil, err
	}
	return &PublicKey{key: pub}, nil
}
