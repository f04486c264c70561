//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package paillier

import (
	"fmt"
	"math"
	"math/big"

	"github.com/markkurossi/fedlr/mpint"
)

const (
	// Base is the fixed-point encoding base.
	Base = 16

	log2Base          = 4
	floatMantissaBits = 53

	// maxMantissaBits bounds the mantissa of an encoded float64.
	maxMantissaBits = floatMantissaBits + log2Base - 1
)

// EncodedNumber is a signed fixed-point number mantissa*Base^Exponent
// encoded into Z_N.
type EncodedNumber struct {
	PublicKey *PublicKey
	Encoding  *big.Int
	Exponent  int
}

// Encode encodes x with the smallest exponent that represents x
// exactly.
func Encode(pub *PublicKey, x float64) (*EncodedNumber, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil, fmt.Errorf("%w: %v", ErrEncodingOverflow, x)
	}
	_, e2 := math.Frexp(x)
	exponent := floorDiv(e2-floatMantissaBits, log2Base)

	return encodeFloat(pub, x, exponent)
}

// EncodeInt encodes the integer x with exponent 0.
func EncodeInt(pub *PublicKey, x *big.Int) (*EncodedNumber, error) {
	return encodeMantissa(pub, x, 0)
}

func encodeFloat(pub *PublicKey, x float64, exponent int) (
	*EncodedNumber, error) {

	// x*Base^-exponent is exact since only the binary exponent
	// changes.
	f := new(big.Float).SetFloat64(x)
	f.SetMantExp(f, -exponent*log2Base)

	return encodeMantissa(pub, roundInt(f), exponent)
}

func encodeMantissa(pub *PublicKey, mantissa *big.Int, exponent int) (
	*EncodedNumber, error) {

	if mantissa.CmpAbs(pub.MaxInt) > 0 {
		return nil, fmt.Errorf("%w: mantissa is %d bits, max %d bits",
			ErrEncodingOverflow, mantissa.BitLen(), pub.MaxInt.BitLen())
	}
	return &EncodedNumber{
		PublicKey: pub,
		Encoding:  mpint.Mod(mantissa, pub.N),
		Exponent:  exponent,
	}, nil
}

// Mantissa returns the signed mantissa of the encoded number.
func (e *EncodedNumber) Mantissa() (*big.Int, error) {
	pub := e.PublicKey
	if e.Encoding.Sign() < 0 || e.Encoding.Cmp(pub.N) >= 0 {
		return nil, fmt.Errorf("%w: encoding outside Z_N", ErrEncodingOverflow)
	}
	if e.Encoding.Cmp(pub.MaxInt) <= 0 {
		return new(big.Int).Set(e.Encoding), nil
	}
	if e.Encoding.Cmp(mpint.Sub(pub.N, pub.MaxInt)) >= 0 {
		return mpint.Sub(e.Encoding, pub.N), nil
	}
	return nil, fmt.Errorf("%w: overflow detected in decoding",
		ErrEncodingOverflow)
}

// Decode decodes the encoded number into a float64 value.
func (e *EncodedNumber) Decode() (float64, error) {
	mantissa, err := e.Mantissa()
	if err != nil {
		return 0, err
	}
	f := new(big.Float).SetInt(mantissa)
	f.SetMantExp(f, e.Exponent*log2Base)

	v, _ := f.Float64()
	if math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v does not fit float64",
			ErrEncodingOverflow, f)
	}
	return v, nil
}

// DecreaseExponentTo returns an encoding of the same value with a
// smaller exponent.
func (e *EncodedNumber) DecreaseExponentTo(exponent int) (
	*EncodedNumber, error) {

	if exponent > e.Exponent {
		return nil, fmt.Errorf("paillier: new exponent %d > old exponent %d",
			exponent, e.Exponent)
	}
	mantissa, err := e.Mantissa()
	if err != nil {
		return nil, err
	}
	mantissa.Mul(mantissa, exponentFactor(e.Exponent-exponent))

	return encodeMantissa(e.PublicKey, mantissa, exponent)
}

// checkRescale verifies that a mantissa of a freshly encoded float64
// stays below MaxInt after multiplying it by Base^diff.
func checkRescale(pub *PublicKey, diff int) error {
	if diff*log2Base+maxMantissaBits >= pub.MaxInt.BitLen() {
		return fmt.Errorf("%w: rescaling by %d^%d exceeds %d bits",
			ErrEncodingOverflow, Base, diff, pub.MaxInt.BitLen())
	}
	return nil
}

// exponentFactor returns Base^diff.
func exponentFactor(diff int) *big.Int {
	return new(big.Int).Lsh(mpint.One, uint(diff*log2Base))
}

// roundInt rounds f to the nearest integer, ties away from zero.
func roundInt(f *big.Float) *big.Int {
	t, acc := f.Int(nil)
	if acc == big.Exact {
		return t
	}
	frac := new(big.Float).Sub(f, new(big.Float).SetInt(t))
	frac.Abs(frac)
	if frac.Cmp(big.NewFloat(0.5)) >= 0 {
		if f.Sign() < 0 {
			t.Sub(t, mpint.One)
		} else {
			t.Add(t, mpint.One)
		}
	}
	return t
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
