//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package paillier

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/markkurossi/fedlr/mpint"
)

const maxUnitAttempts = 64

// Ciphertext implements an encrypted fixed-point number. It is
// immutable after creation.
type Ciphertext struct {
	pub      *PublicKey
	c        *big.Int
	exponent int
}

// NewCiphertext creates a ciphertext from its raw value c and
// encoding exponent. It fails if c is not in the range [1,N^2).
func NewCiphertext(pub *PublicKey, c *big.Int, exponent int) (
	*Ciphertext, error) {

	if c.Sign() <= 0 || c.Cmp(pub.NSquare) >= 0 {
		return nil, errors.New("paillier: ciphertext out of range")
	}
	return &Ciphertext{
		pub:      pub,
		c:        new(big.Int).Set(c),
		exponent: exponent,
	}, nil
}

// PublicKey returns the public key that produced the ciphertext.
func (ct *Ciphertext) PublicKey() *PublicKey {
	return ct.pub
}

// Exponent returns the fixed-point exponent of the encrypted value.
func (ct *Ciphertext) Exponent() int {
	return ct.exponent
}

// Value returns a copy of the raw ciphertext value.
func (ct *Ciphertext) Value() *big.Int {
	return new(big.Int).Set(ct.c)
}

func (ct *Ciphertext) String() string {
	return fmt.Sprintf("Enc[%s,e=%d]", ct.pub, ct.exponent)
}

// Encrypt encrypts the value x.
func (pub *PublicKey) Encrypt(random io.Reader, x float64) (
	*Ciphertext, error) {

	enc, err := Encode(pub, x)
	if err != nil {
		return nil, err
	}
	return pub.EncryptEncoded(random, enc)
}

// EncryptEncoded encrypts the encoded number.
func (pub *PublicKey) EncryptEncoded(random io.Reader, enc *EncodedNumber) (
	*Ciphertext, error) {

	if !pub.Equal(enc.PublicKey) {
		return nil, ErrKeyMismatch
	}
	c, err := pub.RawEncrypt(random, enc.Encoding)
	if err != nil {
		return nil, err
	}
	return &Ciphertext{
		pub:      pub,
		c:        c,
		exponent: enc.Exponent,
	}, nil
}

// RawEncrypt encrypts m in Z_N: (1 + m*N) * r^N mod N^2 for a random
// unit r.
func (pub *PublicKey) RawEncrypt(random io.Reader, m *big.Int) (
	*big.Int, error) {

	if m.Sign() < 0 || m.Cmp(pub.N) >= 0 {
		return nil, fmt.Errorf("%w: plaintext outside Z_N", ErrEncodingOverflow)
	}
	r, err := pub.randomUnit(random)
	if err != nil {
		return nil, err
	}
	nude := mpint.Mod(mpint.Add(mpint.One, mpint.Mul(m, pub.N)), pub.NSquare)
	obfuscator := mpint.Exp(r, pub.N, pub.NSquare)

	return mpint.MulMod(nude, obfuscator, pub.NSquare), nil
}

func (pub *PublicKey) randomUnit(random io.Reader) (*big.Int, error) {
	if random == nil {
		random = rand.Reader
	}
	for i := 0; i < maxUnitAttempts; i++ {
		r, err := rand.Int(random, pub.N)
		if err != nil {
			return nil, err
		}
		if r.Sign() > 0 && mpint.Coprime(r, pub.N) {
			return r, nil
		}
	}
	return nil, errors.New("paillier: could not sample a unit of Z_N")
}

// Decrypt decrypts the ciphertext into a float64 value.
func (priv *PrivateKey) Decrypt(ct *Ciphertext) (float64, error) {
	enc, err := priv.DecryptEncoded(ct)
	if err != nil {
		return 0, err
	}
	return enc.Decode()
}

// DecryptEncoded decrypts the ciphertext into an encoded number.
func (priv *PrivateKey) DecryptEncoded(ct *Ciphertext) (
	*EncodedNumber, error) {

	if ct == nil {
		return nil, errors.New("paillier: nil ciphertext")
	}
	if !ct.pub.Equal(&priv.PublicKey) {
		return nil, fmt.Errorf("%w: ciphertext of %s, private key of %s",
			ErrKeyMismatch, ct.pub, &priv.PublicKey)
	}
	return &EncodedNumber{
		PublicKey: &priv.PublicKey,
		Encoding:  priv.RawDecrypt(ct.c),
		Exponent:  ct.exponent,
	}, nil
}

// RawDecrypt decrypts c into m in Z_N.
func (priv *PrivateKey) RawDecrypt(c *big.Int) *big.Int {
	if priv.Precomputed.Hp == nil {
		return priv.decryptLambda(c)
	}
	return priv.decryptCRT(c)
}

// decryptLambda computes L(c^lambda mod N^2) * mu mod N.
func (priv *PrivateKey) decryptLambda(c *big.Int) *big.Int {
	u := mpint.Exp(c, priv.Lambda, priv.NSquare)
	return mpint.MulMod(l(u, priv.N), priv.Mu, priv.N)
}

func (priv *PrivateKey) decryptCRT(c *big.Int) *big.Int {
	pre := &priv.Precomputed

	up := mpint.Exp(c, mpint.Sub(priv.P, mpint.One), pre.PSquare)
	mp := mpint.MulMod(l(up, priv.P), pre.Hp, priv.P)

	uq := mpint.Exp(c, mpint.Sub(priv.Q, mpint.One), pre.QSquare)
	mq := mpint.MulMod(l(uq, priv.Q), pre.Hq, priv.Q)

	// m = mp + ((mq - mp) * p^-1 mod q) * p
	u := mpint.MulMod(mpint.Sub(mq, mp), pre.PInv, priv.Q)
	return mpint.Add(mp, mpint.Mul(u, priv.P))
}

// Add adds the ciphertexts homomorphically. The result decrypts to
// the sum of the plaintexts of a and b.
func Add(a, b *Ciphertext) (*Ciphertext, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: nil operand", ErrIncompatibleOperands)
	}
	if !a.pub.Equal(b.pub) {
		return nil, fmt.Errorf("%w: %s + %s", ErrIncompatibleOperands,
			a.pub, b.pub)
	}
	var err error
	if a.exponent > b.exponent {
		a, err = a.decreaseExponentTo(b.exponent)
	} else if b.exponent > a.exponent {
		b, err = b.decreaseExponentTo(a.exponent)
	}
	if err != nil {
		return nil, err
	}
	return &Ciphertext{
		pub:      a.pub,
		c:        mpint.MulMod(a.c, b.c, a.pub.NSquare),
		exponent: a.exponent,
	}, nil
}

// MulScalar multiplies the ciphertext with the plaintext scalar s. The
// result decrypts to s times the plaintext of ct.
func (ct *Ciphertext) MulScalar(s float64) (*Ciphertext, error) {
	enc, err := Encode(ct.pub, s)
	if err != nil {
		return nil, err
	}
	return ct.MulEncoded(enc)
}

// MulEncoded multiplies the ciphertext with the encoded scalar.
func (ct *Ciphertext) MulEncoded(s *EncodedNumber) (*Ciphertext, error) {
	if !ct.pub.Equal(s.PublicKey) {
		return nil, fmt.Errorf("%w: scalar of %s", ErrIncompatibleOperands,
			s.PublicKey)
	}
	return &Ciphertext{
		pub:      ct.pub,
		c:        mpint.Exp(ct.c, s.Encoding, ct.pub.NSquare),
		exponent: ct.exponent + s.Exponent,
	}, nil
}

// decreaseExponentTo rescales the ciphertext to the smaller exponent
// by multiplying the plaintext with Base^(ct.exponent-exponent). The
// plaintext is not known so the rescale is refused if a float64
// mantissa could wrap around N.
func (ct *Ciphertext) decreaseExponentTo(exponent int) (*Ciphertext, error) {
	diff := ct.exponent - exponent
	if err := checkRescale(ct.pub, diff); err != nil {
		return nil, err
	}
	return &Ciphertext{
		pub:      ct.pub,
		c:        mpint.Exp(ct.c, exponentFactor(diff), ct.pub.NSquare),
		exponent: exponent,
	}, nil
}
