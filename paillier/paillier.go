//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package paillier implements the Paillier additively homomorphic
// public-key cryptosystem. Real-valued plaintexts are mapped into
// Z_N with a base-16 fixed-point encoding whose exponent travels with
// the ciphertext.
//
// A ciphertext is always bound to the public key that produced it:
// homomorphic operations on ciphertexts of different keys fail with
// ErrIncompatibleOperands and decrypting with the private key of
// another key pair fails with ErrKeyMismatch.
package paillier

import (
	"errors"
)

var (
	// ErrKeyGeneration is returned when key generation could not
	// find suitable primes.
	ErrKeyGeneration = errors.New("paillier: key generation failed")

	// ErrEncodingOverflow is returned when a plaintext does not fit
	// into the encoding range of the key.
	ErrEncodingOverflow = errors.New("paillier: encoding overflow")

	// ErrKeyMismatch is returned when a value is used with a key
	// that did not produce it.
	ErrKeyMismatch = errors.New("paillier: key mismatch")

	// ErrIncompatibleOperands is returned when homomorphic
	// operations are applied on ciphertexts of different public keys.
	ErrIncompatibleOperands = errors.New("paillier: incompatible operands")
)
