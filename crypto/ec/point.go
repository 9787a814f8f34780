package ec

import (
	"fmt"
	"math/big"
)

// Point is an affine curve point. The zero value is the point at infinity.
// Points are immutable: constructors copy their inputs and accessors return
// copies.
type Point struct {
	x, y *big.Int
}

// NewPoint returns the affine point (x, y). It does not check that the point
// lies on any curve.
func NewPoint(x, y *big.Int) Point {
	return Point{x: new(big.Int).Set(x), y: new(big.Int).Set(y)}
}

// Infinity returns the identity element.
func Infinity() Point {
	return Point{}
}

func (p Point) IsInfinity() bool {
	return p.x == nil
}

// X returns a copy of the x coordinate, or zero for the point at infinity.
func (p Point) X() *big.Int {
	if p.x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(p.x)
}

// Y returns a copy of the y coordinate, or zero for the point at infinity.
func (p Point) Y() *big.Int {
	if p.y == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(p.y)
}

func (p Point) Equal(q Point) bool {
	if p.IsInfinity() || q.IsInfinity() {
		return p.IsInfinity() == q.IsInfinity()
	}
	return p.x.Cmp(q.x) == 0 && p.y.Cmp(q.y) == 0
}

func (p Point) String() string {
	if p.IsInfinity() {
		return "(inf)"
	}
	return fmt.Sprintf("(%x, %x)", p.x, p.y)
}
