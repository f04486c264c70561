//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package vector implements element-wise operations over plaintext
// and encrypted vectors. Element i of every vector refers to the same
// model coordinate and all operations preserve the element order.
package vector

import (
	"errors"
	"fmt"
	"io"

	"github.com/markkurossi/fedlr/paillier"
)

var (
	// ErrLengthMismatch is returned when vector operands have
	// different lengths.
	ErrLengthMismatch = errors.New("vector: length mismatch")
)

// Plain implements a plaintext vector.
type Plain []float64

// Encrypted implements an encrypted vector. Encrypted vectors are not
// modified after creation; operations return new vectors.
type Encrypted []*paillier.Ciphertext

// Zeros creates a zero vector of length n.
func Zeros(n int) Plain {
	return make(Plain, n)
}

// Copy returns a copy of the vector.
func (v Plain) Copy() Plain {
	result := make(Plain, len(v))
	copy(result, v)
	return result
}

// Scale returns the vector multiplied by s.
func (v Plain) Scale(s float64) Plain {
	result := make(Plain, len(v))
	for i, e := range v {
		result[i] = e * s
	}
	return result
}

// Sub returns v-o.
func (v Plain) Sub(o Plain) (Plain, error) {
	if len(v) != len(o) {
		return nil, lengthError(len(v), len(o))
	}
	result := make(Plain, len(v))
	for i := range v {
		result[i] = v[i] - o[i]
	}
	return result, nil
}

// PublicKey returns the public key of the vector's elements or nil if
// the vector is empty or its first element is nil.
func (v Encrypted) PublicKey() *paillier.PublicKey {
	if len(v) == 0 || v[0] == nil {
		return nil
	}
	return v[0].PublicKey()
}

// Encrypt encrypts the plaintext vector element-wise.
func Encrypt(random io.Reader, pub *paillier.PublicKey, v Plain) (
	Encrypted, error) {

	result := make(Encrypted, len(v))
	for i, e := range v {
		ct, err := pub.Encrypt(random, e)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		result[i] = ct
	}
	return result, nil
}

// Decrypt decrypts the encrypted vector element-wise.
func Decrypt(priv *paillier.PrivateKey, v Encrypted) (Plain, error) {
	result := make(Plain, len(v))
	for i, ct := range v {
		e, err := priv.Decrypt(ct)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		result[i] = e
	}
	return result, nil
}

// Sum adds the encrypted vectors element-wise.
func Sum(a, b Encrypted) (Encrypted, error) {
	if len(a) != len(b) {
		return nil, lengthError(len(a), len(b))
	}
	result := make(Encrypted, len(a))
	for i := range a {
		ct, err := paillier.Add(a[i], b[i])
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		result[i] = ct
	}
	return result, nil
}

// Fold sums the encrypted vectors from left to right.
func Fold(vectors ...Encrypted) (Encrypted, error) {
	if len(vectors) == 0 {
		return nil, errors.New("vector: nothing to fold")
	}
	acc := vectors[0]
	for _, v := range vectors[1:] {
		var err error
		acc, err = Sum(acc, v)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// Scale multiplies the encrypted vector element-wise with the
// plaintext scalar s.
func Scale(v Encrypted, s float64) (Encrypted, error) {
	result := make(Encrypted, len(v))
	for i, ct := range v {
		r, err := ct.MulScalar(s)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		result[i] = r
	}
	return result, nil
}

func lengthError(a, b int) error {
	return fmt.Errorf("%w: %d != %d", ErrLengthMismatch, a, b)
}
