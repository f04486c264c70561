//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

// Package env implements global environment for the federated
// learning system.
package env

import (
	"crypto/rand"
	"io"
	mrand "math/rand/v2"
)

// Config defines the global system configuration. It configures the
// key generation, encryption, and data shuffling randomness for all
// modules. Config must not be modified after being passed to any
// module.
type Config struct {
	Rand    io.Reader
	Verbose bool
}

// GetRandom returns the source of entropy for key generation,
// encryption, and other cryptography operations.
func (config *Config) GetRandom() io.Reader {
	if config != nil && config.Rand != nil {
		return config.Rand
	}
	return rand.Reader
}

// MathRand returns a math/rand generator drawing its state from the
// config's entropy source. It is used for non-cryptographic sampling
// such as dataset shuffling.
func (config *Config) MathRand() *mrand.Rand {
	return NewRand(config.GetRandom())
}

// NewRand creates a math/rand generator reading from r.
func NewRand(r io.Reader) *mrand.Rand {
	return mrand.New(&readerSource{
		r: r,
	})
}

type readerSource struct {
	r   io.Reader
	buf [8]byte
}

func (s *readerSource) Uint64() uint64 {
	if _, err := io.ReadFull(s.r, s.buf[:]); err != nil {
		panic(err)
	}
	var v uint64
	for _, b := range s.buf {
		v = v<<8 | uint64(b)
	}
	return v
}
