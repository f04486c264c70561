//
// Copyright (c) 2023-2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/markkurossi/fedlr/mpint"
	"github.com/markkurossi/fedlr/paillier"
	"github.com/markkurossi/fedlr/vector"
)

// MaxVectorSize is the maximum number of elements in a received
// vector.
const MaxVectorSize = 1 << 20

// SendBigInt sends a non-negative big.Int value.
func (c *Conn) SendBigInt(val *big.Int) error {
	if val.Sign() < 0 {
		return fmt.Errorf("p2p: negative integer")
	}
	return c.SendData(val.Bytes())
}

// ReceiveBigInt receives a big.Int value.
func (c *Conn) ReceiveBigInt() (*big.Int, error) {
	data, err := c.ReceiveData()
	if err != nil {
		return nil, err
	}
	return mpint.FromBytes(data), nil
}

// SendPublicKey sends the Paillier public key.
func (c *Conn) SendPublicKey(pub *paillier.PublicKey) error {
	return c.SendBigInt(pub.N)
}

// ReceivePublicKey receives a Paillier public key.
func (c *Conn) ReceivePublicKey() (*paillier.PublicKey, error) {
	n, err := c.ReceiveBigInt()
	if err != nil {
		return nil, err
	}
	if n.BitLen() < paillier.MinKeyBits {
		return nil, fmt.Errorf("p2p: invalid public key: %d bits", n.BitLen())
	}
	return paillier.NewPublicKey(n), nil
}

// SendVector sends the encrypted vector. The vector is prefixed with
// its public key fingerprint so that the receiver can verify that the
// elements are encrypted with the expected key.
func (c *Conn) SendVector(v vector.Encrypted) error {
	var fingerprint []byte
	pub := v.PublicKey()
	for i, ct := range v {
		if ct == nil || !ct.PublicKey().Equal(pub) {
			return fmt.Errorf("element %d: %w", i,
				paillier.ErrIncompatibleOperands)
		}
	}
	if pub != nil {
		fingerprint = pub.Fingerprint()
	}
	if err := c.SendData(fingerprint); err != nil {
		return err
	}
	if err := c.SendUint32(len(v)); err != nil {
		return err
	}
	for _, ct := range v {
		if err := c.SendInt32(ct.Exponent()); err != nil {
			return err
		}
		if err := c.SendBigInt(ct.Value()); err != nil {
			return err
		}
	}
	return nil
}

// ReceiveVector receives an encrypted vector. The received
// ciphertexts are bound to the public key pub.
func (c *Conn) ReceiveVector(pub *paillier.PublicKey) (
	vector.Encrypted, error) {

	fingerprint, err := c.ReceiveData()
	if err != nil {
		return nil, err
	}
	count, err := c.ReceiveUint32()
	if err != nil {
		return nil, err
	}
	if count > MaxVectorSize {
		return nil, fmt.Errorf("p2p: vector too large: %d", count)
	}
	if count > 0 && !bytes.Equal(fingerprint, pub.Fingerprint()) {
		return nil, fmt.Errorf("%w: received vector of key %x",
			paillier.ErrKeyMismatch, fingerprint)
	}
	result := make(vector.Encrypted, count)
	for i := 0; i < count; i++ {
		exponent, err := c.ReceiveInt32()
		if err != nil {
			return nil, err
		}
		val, err := c.ReceiveBigInt()
		if err != nil {
			return nil, err
		}
		ct, err := paillier.NewCiphertext(pub, val, exponent)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		result[i] = ct
	}
	return result, nil
}
