package ec

import (
	"crypto/elliptic"
	"fmt"
	"math/big"
)

// weierstrass runs the generic short-Weierstrass arithmetic of
// crypto/elliptic, which only supports a = -3. The affine point (0, 0) is
// its representation of infinity; it never lies on such a curve since b != 0
// is required.
type weierstrass struct {
	params *Params
	cp     *elliptic.CurveParams
	g      Point
}

// NewWeierstrass builds a curve from explicit domain parameters. A must be
// P - 3 and the base point must lie on the curve.
func NewWeierstrass(params *Params) (Curve, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	p := cloneParams(params)
	c := &weierstrass{
		params: p,
		cp: &elliptic.CurveParams{
			P:       p.P,
			N:       p.N,
			B:       p.B,
			Gx:      p.Gx,
			Gy:      p.Gy,
			BitSize: p.BitSize,
			Name:    p.Name,
		},
		g: Point{x: p.Gx, y: p.Gy},
	}
	if !c.IsOnCurve(c.g) {
		return nil, fmt.Errorf("%w: generator not on curve %s", ErrInvalidParams, p.Name)
	}
	return c, nil
}

func validateParams(p *Params) error {
	if p == nil || p.P == nil || p.A == nil || p.B == nil || p.Gx == nil || p.Gy == nil || p.N == nil || p.H == nil {
		return fmt.Errorf("%w: missing value", ErrInvalidParams)
	}
	if p.P.Sign() <= 0 || p.N.Sign() <= 0 || p.H.Sign() <= 0 {
		return fmt.Errorf("%w: non-positive modulus, order or cofactor", ErrInvalidParams)
	}
	if p.BitSize != p.P.BitLen() {
		return fmt.Errorf("%w: bit size %d, field has %d bits", ErrInvalidParams, p.BitSize, p.P.BitLen())
	}
	minus3 := new(big.Int).Sub(p.P, big.NewInt(3))
	if new(big.Int).Mod(p.A, p.P).Cmp(minus3) != 0 {
		return fmt.Errorf("%w: only a = -3 is supported", ErrInvalidParams)
	}
	if p.B.Sign() == 0 {
		return fmt.Errorf("%w: b = 0", ErrInvalidParams)
	}
	return nil
}

func cloneParams(p *Params) *Params {
	return &Params{
		Name:    p.Name,
		P:       new(big.Int).Set(p.P),
		A:       new(big.Int).Set(p.A),
		B:       new(big.Int).Set(p.B),
		Gx:      new(big.Int).Set(p.Gx),
		Gy:      new(big.Int).Set(p.Gy),
		N:       new(big.Int).Set(p.N),
		H:       new(big.Int).Set(p.H),
		BitSize: p.BitSize,
	}
}

func (c *weierstrass) Params() *Params { return cloneParams(c.params) }

func (c *weierstrass) Generator() Point { return c.g }

// affine panics on points that are neither infinity nor on the curve.
func (c *weierstrass) affine(p Point) (x, y *big.Int) {
	if p.IsInfinity() {
		return new(big.Int), new(big.Int)
	}
	if !c.IsOnCurve(p) {
		panic("ec: point not on curve " + c.params.Name)
	}
	return p.x, p.y
}

func (c *weierstrass) point(x, y *big.Int) Point {
	if x.Sign() == 0 && y.Sign() == 0 {
		return Infinity()
	}
	return Point{x: x, y: y}
}

func (c *weierstrass) Add(p, q Point) Point {
	x1, y1 := c.affine(p)
	x2, y2 := c.affine(q)
	if p.IsInfinity() {
		return q
	}
	if q.IsInfinity() {
		return p
	}
	return c.point(c.cp.Add(x1, y1, x2, y2))
}

func (c *weierstrass) scalar(k *big.Int) []byte {
	if k.Sign() < 0 {
		k = new(big.Int).Mod(k, c.params.N)
	}
	return k.Bytes()
}

func (c *weierstrass) ScalarMult(p Point, k *big.Int) Point {
	x, y := c.affine(p)
	if p.IsInfinity() || k.Sign() == 0 {
		return Infinity()
	}
	return c.point(c.cp.ScalarMult(x, y, c.scalar(k)))
}

func (c *weierstrass) ScalarBaseMult(k *big.Int) Point {
	if k.Sign() == 0 {
		return Infinity()
	}
	return c.point(c.cp.ScalarBaseMult(c.scalar(k)))
}

func (c *weierstrass) IsOnCurve(p Point) bool {
	if p.IsInfinity() {
		return false
	}
	if p.x.Sign() < 0 || p.y.Sign() < 0 || p.x.Cmp(c.params.P) >= 0 || p.y.Cmp(c.params.P) >= 0 {
		return false
	}
	return c.cp.IsOnCurve(p.x, p.y)
}

func (c *weierstrass) Encode(p Point) []byte { return encodePoint(c.params, p) }

func (c *weierstrass) Decode(b []byte) (Point, error) { return decodePoint(c, c.params, b) }
