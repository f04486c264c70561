//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package env

import (
	"encoding/binary"
	"sync"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// SeedSize specifies the size of PRNG keys in bytes.
const SeedSize = 32

// Seed derives a PRNG key from the integer seed value.
func Seed(seed uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seed)

	hasher := blake3.New()
	hasher.Write([]byte("fedlr seed"))
	hasher.Write(buf[:])

	return hasher.Sum(nil)[:SeedSize]
}

// KeyedPRNG generates a deterministic stream of random bytes from
// its key. Two instances with the same key produce the same
// stream. The generator is safe for concurrent use, but concurrent
// readers observe the stream in a nondeterministic order.
type KeyedPRNG struct {
	m   sync.Mutex
	key []byte
	xof blake2b.XOF
}

// NewKeyedPRNG creates a new keyed PRNG. The key must be at most 64
// bytes long.
func NewKeyedPRNG(key []byte) (*KeyedPRNG, error) {
	xof, err := blake2b.NewXOF(blake2b.OutputLengthUnknown, key)
	if err != nil {
		return nil, err
	}
	k := make([]byte, len(key))
	copy(k, key)

	return &KeyedPRNG{
		key: k,
		xof: xof,
	}, nil
}

// NewSeededConfig creates a Config with a keyed PRNG derived from
// the seed.
func NewSeededConfig(seed uint64) (*Config, error) {
	prng, err := NewKeyedPRNG(Seed(seed))
	if err != nil {
		return nil, err
	}
	return &Config{
		Rand: prng,
	}, nil
}

// Key returns a copy of the PRNG key.
func (prng *KeyedPRNG) Key() []byte {
	key := make([]byte, len(prng.key))
	copy(key, prng.key)
	return key
}

// Read implements io.Reader.
func (prng *KeyedPRNG) Read(p []byte) (n int, err error) {
	prng.m.Lock()
	defer prng.m.Unlock()
	return prng.xof.Read(p)
}

// Reset rewinds the PRNG to the beginning of its stream.
func (prng *KeyedPRNG) Reset() {
	prng.m.Lock()
	defer prng.m.Unlock()
	prng.xof.Reset()
}
