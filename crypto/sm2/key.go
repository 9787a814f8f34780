// Package sm2 implements SM2 static key pairs and the SM2 authenticated key
// exchange of GB/T 32918.3 on any curve satisfying ec.Curve.
package sm2

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/opentoys/gmcrypto/crypto/ec"
)

// PublicKey is an SM2 public key, a non-infinity point on Curve.
type PublicKey struct {
	Curve ec.Curve
	Point ec.Point
}

// PrivateKey is an SM2 private key with 1 <= D <= N-1.
type PrivateKey struct {
	PublicKey
	D *big.Int
}

// GenerateKey draws a private key uniformly from [1, N-1].
func GenerateKey(c ec.Curve, random io.Reader) (*PrivateKey, error) {
	d, err := randScalar(c, random)
	if err != nil {
		return nil, err
	}
	return newPrivateKey(c, d), nil
}

// NewPrivateKey parses a big-endian private scalar of exactly the curve's
// field size.
func NewPrivateKey(c ec.Curve, key []byte) (*PrivateKey, error) {
	if len(key) != c.Params().ByteLen() {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidPrivateKey, len(key))
	}
	d := new(big.Int).SetBytes(key)
	if d.Sign() == 0 || d.Cmp(c.Params().N) >= 0 {
		return nil, fmt.Errorf("%w: scalar out of range", ErrInvalidPrivateKey)
	}
	return newPrivateKey(c, d), nil
}

func newPrivateKey(c ec.Curve, d *big.Int) *PrivateKey {
	return &PrivateKey{
		PublicKey: PublicKey{Curve: c, Point: c.ScalarBaseMult(d)},
		D:         d,
	}
}

// NewPublicKey decodes an uncompressed public key.
func NewPublicKey(c ec.Curve, key []byte) (*PublicKey, error) {
	p, err := c.Decode(key)
	if err != nil {
		return nil, fmt.Errorf("sm2: public key: %w", err)
	}
	return &PublicKey{Curve: c, Point: p}, nil
}

// Bytes returns the uncompressed encoding 0x04 || x || y.
func (pub *PublicKey) Bytes() []byte {
	return pub.Curve.Encode(pub.Point)
}

func (pub *PublicKey) Equal(x *PublicKey) bool {
	return x != nil && pub.Curve == x.Curve && pub.Point.Equal(x.Point)
}

// Bytes returns D as a fixed-width big-endian scalar.
func (priv *PrivateKey) Bytes() []byte {
	return priv.D.FillBytes(make([]byte, priv.Curve.Params().ByteLen()))
}

func (priv *PrivateKey) Public() *PublicKey {
	return &priv.PublicKey
}

// randScalar returns k uniform in [1, N-1].
func randScalar(c ec.Curve, random io.Reader) (*big.Int, error) {
	if random == nil {
		random = rand.Reader
	}
	nMinus1 := new(big.Int).Sub(c.Params().N, one)
	k, err := rand.Int(random, nMinus1)
	if err != nil {
		return nil, fmt.Errorf("sm2: read random: %w", err)
	}
	return k.Add(k, one), nil
}

var one = big.NewInt(1)

func destroyBigInt(n *big.Int) {
	if n != nil {
		n.SetInt64(0)
	}
}

func destroyBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
