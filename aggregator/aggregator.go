//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package aggregator implements the server role of the federated
// learning protocol. The server owns the Paillier private key and
// only ever decrypts gradient sums over all participants.
package aggregator

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/markkurossi/fedlr/env"
	"github.com/markkurossi/fedlr/paillier"
	"github.com/markkurossi/fedlr/vector"
)

// DefaultKeyBits is the default Paillier key size.
const DefaultKeyBits = paillier.DefaultKeyBits

// ErrInvalidClientCount is returned when aggregated gradients are
// scaled with a non-positive client count.
var ErrInvalidClientCount = errors.New("aggregator: invalid client count")

// Server implements the aggregator.
type Server struct {
	Verbose     bool
	pub         *paillier.PublicKey
	priv        *paillier.PrivateKey
	decryptions atomic.Int64
}

// NewServer creates a new aggregator with a fresh key pair of keyBits
// bits. If keyBits is 0, DefaultKeyBits is used.
func NewServer(cfg *env.Config, keyBits int) (*Server, error) {
	if keyBits == 0 {
		keyBits = DefaultKeyBits
	}
	pub, priv, err := paillier.GenerateKey(cfg.GetRandom(), keyBits)
	if err != nil {
		return nil, fmt.Errorf("aggregator: %w", err)
	}
	return &Server{
		Verbose: cfg != nil && cfg.Verbose,
		pub:     pub,
		priv:    priv,
	}, nil
}

// PublicKey returns the aggregator's public key.
func (s *Server) PublicKey() *paillier.PublicKey {
	return s.pub
}

// DecryptAndScale decrypts the summed gradient vector and divides each
// element by clientCount. On error, no plaintext is returned.
func (s *Server) DecryptAndScale(summed vector.Encrypted, clientCount int) (
	vector.Plain, error) {

	if clientCount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidClientCount, clientCount)
	}
	s.decryptions.Add(1)

	sum, err := vector.Decrypt(s.priv, summed)
	if err != nil {
		return nil, fmt.Errorf("aggregator: %w", err)
	}
	avg := make(vector.Plain, len(sum))
	for i, v := range sum {
		avg[i] = v / float64(clientCount)
	}
	if s.Verbose {
		log.Printf("aggregator %x: decrypted %d-element sum of %d clients\n",
			s.pub.Fingerprint()[:4], len(summed), clientCount)
	}
	return avg, nil
}

// Decryptions returns the number of DecryptAndScale calls.
func (s *Server) Decryptions() int {
	return int(s.decryptions.Load())
}
