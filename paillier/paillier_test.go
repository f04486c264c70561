//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package paillier

import (
	"crypto/rand"
	"errors"
	"io"
	"math"
	"math/big"
	mrand "math/rand/v2"
	"sync"
	"testing"

	"github.com/markkurossi/fedlr/mpint"
)

const testKeyBits = 512

var (
	testKeyOnce sync.Once
	testPub     *PublicKey
	testPriv    *PrivateKey
	testKeyErr  error
)

func testKey(t testing.TB) (*PublicKey, *PrivateKey) {
	testKeyOnce.Do(func() {
		testPub, testPriv, testKeyErr = GenerateKey(rand.Reader, testKeyBits)
	})
	if testKeyErr != nil {
		t.Fatalf("GenerateKey: %v", testKeyErr)
	}
	return testPub, testPriv
}

func approxEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Abs(b))
}

func TestGenerateKey(t *testing.T) {
	for _, bits := range []int{128, 256, 512} {
		pub, priv, err := GenerateKey(rand.Reader, bits)
		if err != nil {
			t.Fatalf("GenerateKey(%d): %v", bits, err)
		}
		if pub.Bits() != bits {
			t.Errorf("GenerateKey(%d): modulus is %d bits", bits, pub.Bits())
		}
		if mpint.Mul(priv.P, priv.Q).Cmp(pub.N) != 0 {
			t.Errorf("p*q != N")
		}
		if priv.P.BitLen() != bits/2 || priv.Q.BitLen() != bits/2 {
			t.Errorf("prime sizes %d,%d, expected %d", priv.P.BitLen(),
				priv.Q.BitLen(), bits/2)
		}
		if pub.G.Cmp(mpint.Add(pub.N, mpint.One)) != 0 {
			t.Errorf("g != N+1")
		}
		lambda := mpint.LCM(mpint.Sub(priv.P, mpint.One),
			mpint.Sub(priv.Q, mpint.One))
		if lambda.Cmp(priv.Lambda) != 0 {
			t.Errorf("lambda != lcm(p-1,q-1)")
		}
		if !pub.Equal(&priv.PublicKey) {
			t.Errorf("public key does not match private key")
		}
	}
}

func TestGenerateKeyInvalidSize(t *testing.T) {
	for _, bits := range []int{0, 64, 255, 513} {
		_, _, err := GenerateKey(rand.Reader, bits)
		if !errors.Is(err, ErrKeyGeneration) {
			t.Errorf("GenerateKey(%d): got %v, expected ErrKeyGeneration",
				bits, err)
		}
	}
}

func TestGenerateKeyExhausted(t *testing.T) {
	saved := randPrime
	defer func() {
		randPrime = saved
	}()

	var calls int
	randPrime = func(r io.Reader, bits int) (*big.Int, error) {
		calls++
		// The same prime every time so p == q.
		return big.NewInt(0).SetBit(big.NewInt(0xc5), bits-1, 1), nil
	}
	_, _, err := GenerateKey(rand.Reader, 256)
	if !errors.Is(err, ErrKeyGeneration) {
		t.Fatalf("GenerateKey: got %v, expected ErrKeyGeneration", err)
	}
	if calls != 2*MaxKeyGenAttempts {
		t.Errorf("prime sampled %d times, expected %d", calls,
			2*MaxKeyGenAttempts)
	}
}

var encodeTests = []float64{
	0, 1, -1, 0.5, -0.5, 3.141592653589793, -123.456, 1e-10, -1e-10,
	1e10, 7e-300, -1.5e300, math.MaxInt32, math.SmallestNonzeroFloat64,
	math.MaxFloat64,
}

func TestEncodeDecode(t *testing.T) {
	pub, _ := testKey(t)
	for _, test := range encodeTests {
		enc, err := Encode(pub, test)
		if err != nil {
			t.Fatalf("Encode(%v): %v", test, err)
		}
		v, err := enc.Decode()
		if err != nil {
			t.Fatalf("Decode(%v): %v", test, err)
		}
		if v != test {
			t.Errorf("Decode(Encode(%v))=%v", test, v)
		}
	}
}

func TestEncodeOverflow(t *testing.T) {
	pub, _ := testKey(t)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Encode(pub, v)
		if !errors.Is(err, ErrEncodingOverflow) {
			t.Errorf("Encode(%v): got %v, expected ErrEncodingOverflow", v, err)
		}
	}

	_, err := EncodeInt(pub, mpint.Add(pub.MaxInt, mpint.One))
	if !errors.Is(err, ErrEncodingOverflow) {
		t.Errorf("EncodeInt: got %v, expected ErrEncodingOverflow", err)
	}
	enc, err := EncodeInt(pub, new(big.Int).Neg(pub.MaxInt))
	if err != nil {
		t.Fatalf("EncodeInt(-MaxInt): %v", err)
	}
	m, err := enc.Mantissa()
	if err != nil {
		t.Fatal(err)
	}
	if m.Cmp(new(big.Int).Neg(pub.MaxInt)) != 0 {
		t.Errorf("Mantissa=%s, expected -MaxInt", m)
	}
}

func TestDecodeOverflow(t *testing.T) {
	pub, _ := testKey(t)

	// Encodings between MaxInt and N-MaxInt are neither positive nor
	// negative numbers.
	enc := &EncodedNumber{
		PublicKey: pub,
		Encoding:  mpint.Div(pub.N, big.NewInt(2)),
	}
	_, err := enc.Decode()
	if !errors.Is(err, ErrEncodingOverflow) {
		t.Errorf("Decode: got %v, expected ErrEncodingOverflow", err)
	}
}

func TestDecreaseExponent(t *testing.T) {
	pub, _ := testKey(t)

	enc, err := Encode(pub, -2.75)
	if err != nil {
		t.Fatal(err)
	}
	lower, err := enc.DecreaseExponentTo(enc.Exponent - 5)
	if err != nil {
		t.Fatal(err)
	}
	v, err := lower.Decode()
	if err != nil {
		t.Fatal(err)
	}
	if v != -2.75 {
		t.Errorf("Decode=%v, expected -2.75", v)
	}
	_, err = enc.DecreaseExponentTo(enc.Exponent + 1)
	if err == nil {
		t.Errorf("DecreaseExponentTo accepted larger exponent")
	}
	_, err = enc.DecreaseExponentTo(enc.Exponent - testKeyBits/log2Base)
	if !errors.Is(err, ErrEncodingOverflow) {
		t.Errorf("DecreaseExponentTo: got %v, expected ErrEncodingOverflow",
			err)
	}
}

var addTests = []struct {
	a, b float64
}{
	{1, 2},
	{-1, 1},
	{0.1, 0.2},
	{-123.5, 17.25},
	{1e-8, 1e8},
	{-3.5e-5, -2.25e-3},
	{0, 0},
}

func TestHomomorphicAdd(t *testing.T) {
	pub, priv := testKey(t)

	for _, test := range addTests {
		ca, err := pub.Encrypt(rand.Reader, test.a)
		if err != nil {
			t.Fatal(err)
		}
		cb, err := pub.Encrypt(rand.Reader, test.b)
		if err != nil {
			t.Fatal(err)
		}
		sum, err := Add(ca, cb)
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		v, err := priv.Decrypt(sum)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if !approxEqual(v, test.a+test.b, 1e-12) {
			t.Errorf("%v + %v = %v, expected %v", test.a, test.b, v,
				test.a+test.b)
		}
	}
}

func TestAddOverflow(t *testing.T) {
	pub, priv := testKey(t)

	// The exponents are too far apart for the smaller one to be
	// rescaled without wrapping around N.
	tests := []struct {
		a, b float64
	}{
		{5e-324, 1},
		{1, 5e-324},
		{1e300, 1},
		{-1e150, 1e-150},
	}
	for _, test := range tests {
		ca, err := pub.Encrypt(rand.Reader, test.a)
		if err != nil {
			t.Fatal(err)
		}
		cb, err := pub.Encrypt(rand.Reader, test.b)
		if err != nil {
			t.Fatal(err)
		}
		sum, err := Add(ca, cb)
		if !errors.Is(err, ErrEncodingOverflow) {
			v, _ := priv.Decrypt(sum)
			t.Errorf("%v + %v: got %v (%v), expected ErrEncodingOverflow",
				test.a, test.b, v, err)
		}
	}

	// Exponents far apart but within the key are still exact.
	ca, err := pub.Encrypt(rand.Reader, 1e-30)
	if err != nil {
		t.Fatal(err)
	}
	cb, err := pub.Encrypt(rand.Reader, 1e30)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := Add(ca, cb)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	v, err := priv.Decrypt(sum)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if v != 1e30+1e-30 {
		t.Errorf("1e-30 + 1e30 = %v", v)
	}
}

func TestMulScalar(t *testing.T) {
	pub, priv := testKey(t)

	tests := []struct {
		a, k float64
	}{
		{2, 3},
		{-1.5, 4},
		{10, -0.5},
		{-7.25, -2},
		{42, 0},
	}
	for _, test := range tests {
		ca, err := pub.Encrypt(rand.Reader, test.a)
		if err != nil {
			t.Fatal(err)
		}
		prod, err := ca.MulScalar(test.k)
		if err != nil {
			t.Fatalf("MulScalar: %v", err)
		}
		v, err := priv.Decrypt(prod)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if !approxEqual(v, test.a*test.k, 1e-12) {
			t.Errorf("%v * %v = %v, expected %v", test.a, test.k, v,
				test.a*test.k)
		}
	}
}

func TestKeyIsolation(t *testing.T) {
	pub, _ := testKey(t)
	other, otherPriv, err := GenerateKey(rand.Reader, testKeyBits)
	if err != nil {
		t.Fatal(err)
	}

	ct, err := pub.Encrypt(rand.Reader, 12.5)
	if err != nil {
		t.Fatal(err)
	}
	v, err := otherPriv.Decrypt(ct)
	if !errors.Is(err, ErrKeyMismatch) {
		t.Fatalf("Decrypt: got %v, expected ErrKeyMismatch", err)
	}
	if v != 0 {
		t.Errorf("Decrypt returned value %v with error", v)
	}

	co, err := other.Encrypt(rand.Reader, 1)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Add(ct, co)
	if !errors.Is(err, ErrIncompatibleOperands) {
		t.Errorf("Add: got %v, expected ErrIncompatibleOperands", err)
	}
	_, err = Add(ct, nil)
	if !errors.Is(err, ErrIncompatibleOperands) {
		t.Errorf("Add(nil): got %v, expected ErrIncompatibleOperands", err)
	}
	enc, err := Encode(other, 2)
	if err != nil {
		t.Fatal(err)
	}
	_, err = ct.MulEncoded(enc)
	if !errors.Is(err, ErrIncompatibleOperands) {
		t.Errorf("MulEncoded: got %v, expected ErrIncompatibleOperands", err)
	}
	_, err = pub.EncryptEncoded(rand.Reader, enc)
	if !errors.Is(err, ErrKeyMismatch) {
		t.Errorf("EncryptEncoded: got %v, expected ErrKeyMismatch", err)
	}
}

func TestRoundTrip(t *testing.T) {
	pub, priv := testKey(t)
	rnd := mrand.New(mrand.NewPCG(1, 2))

	for i := 0; i < 1000; i++ {
		x := (rnd.Float64() - 0.5) * 2e6
		ct, err := pub.Encrypt(rand.Reader, x)
		if err != nil {
			t.Fatalf("Encrypt(%v): %v", x, err)
		}
		v, err := priv.Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if math.Abs(v-x) > 1e-6 {
			t.Fatalf("Decrypt(Encrypt(%v))=%v", x, v)
		}
	}
}

func TestDecryptCRT(t *testing.T) {
	pub, priv := testKey(t)

	for _, x := range []float64{0, 1, -1, 99.5, -1e-3} {
		ct, err := pub.Encrypt(rand.Reader, x)
		if err != nil {
			t.Fatal(err)
		}
		crt := priv.decryptCRT(ct.c)
		lambda := priv.decryptLambda(ct.c)
		if crt.Cmp(lambda) != 0 {
			t.Errorf("CRT decryption %s != lambda decryption %s", crt, lambda)
		}
	}
}

func TestNewCiphertext(t *testing.T) {
	pub, priv := testKey(t)

	ct, err := pub.Encrypt(rand.Reader, -4.5)
	if err != nil {
		t.Fatal(err)
	}
	copied, err := NewCiphertext(NewPublicKey(pub.N), ct.Value(), ct.Exponent())
	if err != nil {
		t.Fatal(err)
	}
	v, err := priv.Decrypt(copied)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if v != -4.5 {
		t.Errorf("Decrypt=%v, expected -4.5", v)
	}

	for _, c := range []*big.Int{big.NewInt(0), pub.NSquare} {
		_, err = NewCiphertext(pub, c, 0)
		if err == nil {
			t.Errorf("NewCiphertext accepted %s", c)
		}
	}
}

func TestFingerprint(t *testing.T) {
	pub, _ := testKey(t)
	if string(pub.Fingerprint()) != string(NewPublicKey(pub.N).Fingerprint()) {
		t.Errorf("fingerprint depends on key instance")
	}
	if len(pub.Fingerprint()) != 32 {
		t.Errorf("fingerprint is %d bytes", len(pub.Fingerprint()))
	}
}

func benchmarkEncrypt(b *testing.B, keyBits int) {
	pub, _, err := GenerateKey(rand.Reader, keyBits)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := pub.Encrypt(rand.Reader, float64(i)*0.25)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEncrypt1024(b *testing.B) {
	benchmarkEncrypt(b, 1024)
}

func BenchmarkEncrypt2048(b *testing.B) {
	benchmarkEncrypt(b, 2048)
}

func benchmarkDecrypt(b *testing.B, keyBits int) {
	pub, priv, err := GenerateKey(rand.Reader, keyBits)
	if err != nil {
		b.Fatal(err)
	}
	ct, err := pub.Encrypt(rand.Reader, 42.5)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := priv.Decrypt(ct)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecrypt1024(b *testing.B) {
	benchmarkDecrypt(b, 1024)
}

func BenchmarkDecrypt2048(b *testing.B) {
	benchmarkDecrypt(b, 2048)
}
