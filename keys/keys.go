// Package keys provides the deterministic key operations the validation
// core depends on: RFC 6979 ECDSA over secp256k1, public key decoding, and
// address derivation. Every operation here is a pure function of its
// inputs; validators must produce bit-identical signatures for the same
// key and message or the chain forks.
package keys

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/JeremyLWright/uplink/types"
)

// Common key errors.
var (
	ErrInvalidPubKey    = errors.New("invalid public key bytes")
	ErrInvalidSignature = errors.New("invalid signature bytes")
)

// PrivateKey is a secp256k1 private key.
type PrivateKey = secp256k1.PrivateKey

// PublicKey is a secp256k1 public key.
type PublicKey = secp256k1.PublicKey

// GeneratePrivateKey creates a new random private key. Key generation is
// the only entropy-consuming operation in this package and never runs
// during block validation.
func GeneratePrivateKey() (*PrivateKey, error) {
	return secp256k1.GeneratePrivateKey()
}

// PrivateKeyFromBytes builds a private key from its 32-byte encoding.
func PrivateKeyFromBytes(b []byte) *PrivateKey {
	return secp256k1.PrivKeyFromBytes(b)
}

// DecodePubKey parses a compressed or uncompressed secp256k1 public key.
func DecodePubKey(b []byte) (*PublicKey, error) {
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPubKey, err)
	}
	return pub, nil
}

// EncodePubKey returns the compressed 33-byte encoding of a public key.
func EncodePubKey(pub *PublicKey) []byte {
	return pub.SerializeCompressed()
}

// Signature is a deterministic ECDSA signature with its scalar components
// exposed for the script runtime.
type Signature struct {
	R *big.Int
	S *big.Int
}

// Sign signs msg with the private key using RFC 6979 deterministic nonce
// generation. The message is hashed with SHA-256 before signing.
func Sign(priv *PrivateKey, msg []byte) *Signature {
	digest := sha256.Sum256(msg)
	return SignHash(priv, digest[:])
}

// SignHash signs a precomputed 32-byte digest.
func SignHash(priv *PrivateKey, digest []byte) *Signature {
	sig := ecdsa.Sign(priv, digest)
	r := sig.R()
	s := sig.S()
	rb := r.Bytes()
	sb := s.Bytes()
	return &Signature{
		R: new(big.Int).SetBytes(rb[:]),
		S: new(big.Int).SetBytes(sb[:]),
	}
}

// Verify reports whether sig is a valid signature of msg under pub. The
// message is hashed with SHA-256 before verification.
func Verify(pub *PublicKey, sig *Signature, msg []byte) bool {
	digest := sha256.Sum256(msg)
	return VerifyHash(pub, sig, digest[:])
}

// VerifyHash verifies a signature over a precomputed 32-byte digest.
func VerifyHash(pub *PublicKey, sig *Signature, digest []byte) bool {
	if sig == nil || sig.R == nil || sig.S == nil {
		return false
	}
	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(sig.R.Bytes()); overflow {
		return false
	}
	if overflow := s.SetByteSlice(sig.S.Bytes()); overflow {
		return false
	}
	return ecdsa.NewSignature(&r, &s).Verify(digest, pub)
}

// Serialize returns the DER encoding of the signature.
func (sig *Signature) Serialize() []byte {
	var r, s secp256k1.ModNScalar
	r.SetByteSlice(sig.R.Bytes())
	s.SetByteSlice(sig.S.Bytes())
	return ecdsa.NewSignature(&r, &s).Serialize()
}

// ParseSignature parses a DER-encoded signature.
func ParseSignature(der []byte) (*Signature, error) {
	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	r := sig.R()
	s := sig.S()
	rb := r.Bytes()
	sb := s.Bytes()
	return &Signature{
		R: new(big.Int).SetBytes(rb[:]),
		S: new(big.Int).SetBytes(sb[:]),
	}, nil
}

// AddressFromPubKey derives an entity address from a public key: the
// SHA-256 hash of the compressed encoding.
func AddressFromPubKey(pub *PublicKey) types.Address {
	digest := sha256.Sum256(pub.SerializeCompressed())
	return types.Address(digest[:])
}
