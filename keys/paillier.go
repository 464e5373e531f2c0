package keys

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// Paillier additively homomorphic encryption. Ciphertexts live in the
// script runtime as crypto values; the public key is owned by the contract
// and threaded through the evaluation context so repeated invocations
// operate under the same modulus.
//
// Ciphertext operations are pure modular arithmetic and therefore
// deterministic. Encrypt consumes entropy and is only used by clients
// preparing transactions, never during validation.

// Paillier errors.
var (
	ErrPaillierKeySize   = errors.New("paillier key too small")
	ErrPaillierPlaintext = errors.New("plaintext out of range")
	ErrPaillierCipher    = errors.New("ciphertext out of range")
)

// MinPaillierBits is the minimum accepted modulus size.
const MinPaillierBits = 1024

// PaillierPub is a Paillier public key.
type PaillierPub struct {
	// N is the modulus.
	N *big.Int

	// NSquared is N^2, cached for ciphertext arithmetic.
	NSquared *big.Int

	// G is the group generator, fixed to N+1.
	G *big.Int
}

// PaillierPriv is a Paillier private key.
type PaillierPriv struct {
	Pub    *PaillierPub
	lambda *big.Int // lcm(p-1, q-1)
	mu     *big.Int // lambda^-1 mod N
}

// NewPaillierPub builds a public key from a modulus.
func NewPaillierPub(n *big.Int) (*PaillierPub, error) {
	if n == nil || n.BitLen() < MinPaillierBits {
		return nil, fmt.Errorf("%w: %d bits", ErrPaillierKeySize, bitLen(n))
	}
	return &PaillierPub{
		N:        new(big.Int).Set(n),
		NSquared: new(big.Int).Mul(n, n),
		G:        new(big.Int).Add(n, big.NewInt(1)),
	}, nil
}

func bitLen(n *big.Int) int {
	if n == nil {
		return 0
	}
	return n.BitLen()
}

// GeneratePaillierKey creates a new keypair with a modulus of bits size.
func GeneratePaillierKey(bits int) (*PaillierPriv, error) {
	if bits < MinPaillierBits {
		return nil, fmt.Errorf("%w: %d bits", ErrPaillierKeySize, bits)
	}
	p, err := rand.Prime(rand.Reader, bits/2)
	if err != nil {
		return nil, fmt.Errorf("generating prime: %w", err)
	}
	q, err := rand.Prime(rand.Reader, bits/2)
	if err != nil {
		return nil, fmt.Errorf("generating prime: %w", err)
	}
	n := new(big.Int).Mul(p, q)
	pub, err := NewPaillierPub(n)
	if err != nil {
		return nil, err
	}

	pm1 := new(big.Int).Sub(p, big.NewInt(1))
	qm1 := new(big.Int).Sub(q, big.NewInt(1))
	gcd := new(big.Int).GCD(nil, nil, pm1, qm1)
	lambda := new(big.Int).Div(new(big.Int).Mul(pm1, qm1), gcd)
	mu := new(big.Int).ModInverse(lambda, n)
	if mu == nil {
		return nil, errors.New("degenerate paillier modulus")
	}

	return &PaillierPriv{Pub: pub, lambda: lambda, mu: mu}, nil
}

// Encrypt encrypts a plaintext m in [0, N).
func (priv *PaillierPriv) Encrypt(m *big.Int) (*big.Int, error) {
	return priv.Pub.Encrypt(m)
}

// Encrypt encrypts a plaintext m in [0, N) under the public key.
func (pub *PaillierPub) Encrypt(m *big.Int) (*big.Int, error) {
	if m.Sign() < 0 || m.Cmp(pub.N) >= 0 {
		return nil, ErrPaillierPlaintext
	}
	r, err := rand.Int(rand.Reader, pub.N)
	if err != nil {
		return nil, fmt.Errorf("sampling randomness: %w", err)
	}
	if r.Sign() == 0 {
		r = big.NewInt(1)
	}
	// c = g^m * r^N mod N^2
	gm := new(big.Int).Exp(pub.G, m, pub.NSquared)
	rn := new(big.Int).Exp(r, pub.N, pub.NSquared)
	return gm.Mul(gm, rn).Mod(gm, pub.NSquared), nil
}

// Decrypt recovers the plaintext from a ciphertext.
func (priv *PaillierPriv) Decrypt(c *big.Int) (*big.Int, error) {
	pub := priv.Pub
	if c.Sign() <= 0 || c.Cmp(pub.NSquared) >= 0 {
		return nil, ErrPaillierCipher
	}
	// m = L(c^lambda mod N^2) * mu mod N, L(x) = (x-1)/N
	x := new(big.Int).Exp(c, priv.lambda, pub.NSquared)
	x.Sub(x, big.NewInt(1))
	x.Div(x, pub.N)
	x.Mul(x, priv.mu)
	return x.Mod(x, pub.N), nil
}

// CipherAdd returns the ciphertext of the sum of the two plaintexts.
func (pub *PaillierPub) CipherAdd(c1, c2 *big.Int) (*big.Int, error) {
	if err := pub.checkCipher(c1); err != nil {
		return nil, err
	}
	if err := pub.checkCipher(c2); err != nil {
		return nil, err
	}
	out := new(big.Int).Mul(c1, c2)
	return out.Mod(out, pub.NSquared), nil
}

// CipherSub returns the ciphertext of the difference of the two plaintexts.
func (pub *PaillierPub) CipherSub(c1, c2 *big.Int) (*big.Int, error) {
	if err := pub.checkCipher(c1); err != nil {
		return nil, err
	}
	if err := pub.checkCipher(c2); err != nil {
		return nil, err
	}
	inv := new(big.Int).ModInverse(c2, pub.NSquared)
	if inv == nil {
		return nil, ErrPaillierCipher
	}
	out := new(big.Int).Mul(c1, inv)
	return out.Mod(out, pub.NSquared), nil
}

// CipherMul returns the ciphertext of the plaintext scaled by k.
func (pub *PaillierPub) CipherMul(c *big.Int, k *big.Int) (*big.Int, error) {
	if err := pub.checkCipher(c); err != nil {
		return nil, err
	}
	e := new(big.Int).Mod(k, pub.N)
	return new(big.Int).Exp(c, e, pub.NSquared), nil
}

func (pub *PaillierPub) checkCipher(c *big.Int) error {
	if c == nil || c.Sign() <= 0 || c.Cmp(pub.NSquared) >= 0 {
		return ErrPaillierCipher
	}
	return nil
}
