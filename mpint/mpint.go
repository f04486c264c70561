//
// mpint.go
//
// Copyright (c) 2019-2026 Markku Rossi
//
// All rights reserved.
//

// Package mpint implements multi-precision integer helpers that
// allocate their results.
package mpint

import (
	"math/big"
)

var (
	// One is the constant 1. It must not be modified.
	One = big.NewInt(1)
)

// FromBytes creates an integer from the big-endian data.
func FromBytes(data []byte) *big.Int {
	return big.NewInt(0).SetBytes(data)
}

// Add returns a+b.
func Add(a, b *big.Int) *big.Int {
	return big.NewInt(0).Add(a, b)
}

// Sub returns a-b.
func Sub(a, b *big.Int) *big.Int {
	return big.NewInt(0).Sub(a, b)
}

// Mul returns a*b.
func Mul(a, b *big.Int) *big.Int {
	return big.NewInt(0).Mul(a, b)
}

// MulMod returns a*b mod m.
func MulMod(a, b, m *big.Int) *big.Int {
	r := big.NewInt(0).Mul(a, b)
	return r.Mod(r, m)
}

// Exp returns x**y mod m.
func Exp(x, y, m *big.Int) *big.Int {
	return big.NewInt(0).Exp(x, y, m)
}

// Mod returns x mod y in the range [0,|y|).
func Mod(x, y *big.Int) *big.Int {
	return big.NewInt(0).Mod(x, y)
}

// Div returns the Euclidean quotient x/y.
func Div(x, y *big.Int) *big.Int {
	return big.NewInt(0).Div(x, y)
}

// ModInverse returns the multiplicative inverse of x in the ring
// Z/mZ or nil if x and m are not relatively prime.
func ModInverse(x, m *big.Int) *big.Int {
	return big.NewInt(0).ModInverse(x, m)
}

// GCD returns the greatest common divisor of a and b.
func GCD(a, b *big.Int) *big.Int {
	return big.NewInt(0).GCD(nil, nil, a, b)
}

// LCM returns the least common multiple of a and b.
func LCM(a, b *big.Int) *big.Int {
	return Div(Mul(a, b), GCD(a, b))
}

// Coprime tests if a and b are relatively prime.
func Coprime(a, b *big.Int) bool {
	return GCD(a, b).Cmp(One) == 0
}
