// Package ec defines the elliptic-curve contract used by the SM2 protocols:
// immutable affine points, curve domain parameters, group arithmetic and the
// uncompressed point encoding. Concrete curves are obtained from the
// registry (ByName) or built with NewWeierstrass.
package ec

import (
	"errors"
	"math/big"
)

var (
	ErrInvalidEncoding = errors.New("ec: invalid point encoding")
	ErrInvalidParams   = errors.New("ec: invalid domain parameters")
	ErrUnknownCurve    = errors.New("ec: unknown curve")
	ErrDuplicateCurve  = errors.New("ec: curve already registered")
)

// Params holds the domain parameters of a curve y² = x³ + ax + b over GF(P)
// with a base point (Gx, Gy) of prime order N and cofactor H.
type Params struct {
	Name    string
	P       *big.Int
	A       *big.Int
	B       *big.Int
	Gx, Gy  *big.Int
	N       *big.Int
	H       *big.Int
	BitSize int
}

// ByteLen is the length in bytes of one encoded field element.
func (p *Params) ByteLen() int {
	return (p.BitSize + 7) / 8
}

// Curve is a prime-order group on which SM2 can run. Implementations must be
// safe for concurrent use and must reject off-curve input in Decode.
//
// Add and ScalarMult only accept the point at infinity or points on the
// curve; any other point, such as an unchecked NewPoint, makes them panic. Use IsOnCurve or Decode to validate untrusted input.
type Curve interface {
	// Params returns a copy of the domain parameters.
	Params() *Params
	// Generator returns the base point G.
	Generator() Point
	Add(p, q Point) Point
	// ScalarMult returns [k]p. k must be non-negative.
	ScalarMult(p Point, k *big.Int) Point
	ScalarBaseMult(k *big.Int) Point
	IsOnCurve(p Point) bool
	// Encode returns the uncompressed form 0x04 || x || y, or a single zero
	// byte for the point at infinity.
	Encode(p Point) []byte
	// Decode parses an uncompressed point. The point at infinity, values
	// outside the field and points not on the curve are rejected with
	// ErrInvalidEncoding.
	Decode(b []byte) (Point, error)
}
