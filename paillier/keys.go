//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package paillier

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/markkurossi/fedlr/mpint"
	"github.com/zeebo/blake3"
)

const (
	// MaxKeyGenAttempts bounds the number of prime pair samplings in
	// GenerateKey.
	MaxKeyGenAttempts = 100

	// MinKeyBits is the minimum supported modulus size.
	MinKeyBits = 128

	// DefaultKeyBits is the default modulus size.
	DefaultKeyBits = 1024
)

// randPrime samples primes with the two most significant bits set.
var randPrime = rand.Prime

// PublicKey implements the Paillier public key.
type PublicKey struct {
	N       *big.Int
	NSquare *big.Int
	G       *big.Int

	// MaxInt is the largest mantissa magnitude that can be
	// encoded. Encodings above N-MaxInt are negative numbers.
	MaxInt *big.Int
}

// NewPublicKey creates a public key for the modulus n.
func NewPublicKey(n *big.Int) *PublicKey {
	nn := new(big.Int).Set(n)
	return &PublicKey{
		N:       nn,
		NSquare: mpint.Mul(nn, nn),
		G:       mpint.Add(nn, mpint.One),
		MaxInt:  mpint.Sub(mpint.Div(nn, big.NewInt(3)), mpint.One),
	}
}

// Bits returns the modulus size in bits.
func (pub *PublicKey) Bits() int {
	return pub.N.BitLen()
}

// Equal tests if the argument public key is equal to this key.
func (pub *PublicKey) Equal(o *PublicKey) bool {
	if pub == o {
		return true
	}
	if pub == nil || o == nil {
		return false
	}
	return pub.N.Cmp(o.N) == 0
}

// Fingerprint returns a digest that identifies the public key.
func (pub *PublicKey) Fingerprint() []byte {
	hasher := blake3.New()
	hasher.Write([]byte("paillier public key"))
	hasher.Write(pub.N.Bytes())
	return hasher.Sum(nil)
}

func (pub *PublicKey) String() string {
	return fmt.Sprintf("paillier-%d:%x", pub.Bits(), pub.Fingerprint()[:8])
}

// PrivateKey implements the Paillier private key.
type PrivateKey struct {
	PublicKey
	P      *big.Int
	Q      *big.Int
	Lambda *big.Int
	Mu     *big.Int

	Precomputed PrecomputedValues
}

// PrecomputedValues contain the CRT decryption parameters.
type PrecomputedValues struct {
	PSquare *big.Int
	QSquare *big.Int
	Hp      *big.Int
	Hq      *big.Int
	PInv    *big.Int // p^-1 mod q
}

// GenerateKey generates a key pair with a bits-sized modulus. The
// primes are sampled with random until they satisfy gcd(pq,
// (p-1)(q-1)) = 1 or until MaxKeyGenAttempts samplings have been
// done.
func GenerateKey(random io.Reader, bits int) (*PublicKey, *PrivateKey, error) {
	if bits < MinKeyBits || bits%2 != 0 {
		return nil, nil, fmt.Errorf("%w: invalid key size %d", ErrKeyGeneration,
			bits)
	}
	for attempt := 0; attempt < MaxKeyGenAttempts; attempt++ {
		p, err := randPrime(random, bits/2)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
		}
		q, err := randPrime(random, bits/2)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
		}
		if p.Cmp(q) == 0 {
			continue
		}
		n := mpint.Mul(p, q)
		if n.BitLen() != bits {
			continue
		}
		pm1 := mpint.Sub(p, mpint.One)
		qm1 := mpint.Sub(q, mpint.One)
		if !mpint.Coprime(n, mpint.Mul(pm1, qm1)) {
			continue
		}
		priv, err := newPrivateKey(p, q)
		if err != nil {
			continue
		}
		return &priv.PublicKey, priv, nil
	}
	return nil, nil, fmt.Errorf("%w: no suitable primes after %d attempts",
		ErrKeyGeneration, MaxKeyGenAttempts)
}

func newPrivateKey(p, q *big.Int) (*PrivateKey, error) {
	n := mpint.Mul(p, q)
	lambda := mpint.LCM(mpint.Sub(p, mpint.One), mpint.Sub(q, mpint.One))

	// With g = n+1, L(g^lambda mod n^2) = lambda mod n.
	mu := mpint.ModInverse(mpint.Mod(lambda, n), n)
	if mu == nil {
		return nil, fmt.Errorf("%w: lambda not invertible", ErrKeyGeneration)
	}
	priv := &PrivateKey{
		PublicKey: *NewPublicKey(n),
		P:         new(big.Int).Set(p),
		Q:         new(big.Int).Set(q),
		Lambda:    lambda,
		Mu:        mu,
	}
	if err := priv.Precompute(); err != nil {
		return nil, err
	}
	return priv, nil
}

// Precompute computes the CRT parameters that speed up decryption.
func (priv *PrivateKey) Precompute() error {
	if priv.Precomputed.Hp != nil {
		return nil
	}
	p, q := priv.P, priv.Q

	pinv := mpint.ModInverse(p, q)
	if pinv == nil {
		return fmt.Errorf("%w: p not invertible mod q", ErrKeyGeneration)
	}
	pp := mpint.Mul(p, p)
	qq := mpint.Mul(q, q)

	hp := priv.h(p, pp)
	hq := priv.h(q, qq)
	if hp == nil || hq == nil {
		return fmt.Errorf("%w: invalid CRT parameters", ErrKeyGeneration)
	}
	priv.Precomputed = PrecomputedValues{
		PSquare: pp,
		QSquare: qq,
		Hp:      hp,
		Hq:      hq,
		PInv:    pinv,
	}
	return nil
}

// h computes L_x(g^(x-1) mod x^2)^-1 mod x.
func (priv *PrivateKey) h(x, xx *big.Int) *big.Int {
	gx := mpint.Exp(mpint.Mod(priv.G, xx), mpint.Sub(x, mpint.One), xx)
	return mpint.ModInverse(l(gx, x), x)
}

// l implements the Paillier L function L(u) = (u-1)/n.
func l(u, n *big.Int) *big.Int {
	return mpint.Div(mpint.Sub(u, mpint.One), n)
}
