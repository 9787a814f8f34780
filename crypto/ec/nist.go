package ec

import (
	"crypto/elliptic"
	"math/big"

	"filippo.io/nistec"
)

type nistP256 struct {
	params *Params
	g      Point
}

// P256 returns NIST P-256 backed by the constant-time nistec implementation.
func P256() Curve {
	return p256Curve
}

var p256Curve = newNistP256()

func newNistP256() *nistP256 {
	cp := elliptic.P256().Params()
	p := &Params{
		Name:    cp.Name,
		P:       new(big.Int).Set(cp.P),
		A:       new(big.Int).Sub(cp.P, big.NewInt(3)),
		B:       new(big.Int).Set(cp.B),
		Gx:      new(big.Int).Set(cp.Gx),
		Gy:      new(big.Int).Set(cp.Gy),
		N:       new(big.Int).Set(cp.N),
		H:       big.NewInt(1),
		BitSize: cp.BitSize,
	}
	return &nistP256{params: p, g: Point{x: p.Gx, y: p.Gy}}
}

func (c *nistP256) Params() *Params { return cloneParams(c.params) }

func (c *nistP256) Generator() Point { return c.g }

// toNistec panics on points that are not on the curve.
func (c *nistP256) toNistec(p Point) *nistec.P256Point {
	if p.IsInfinity() {
		return nistec.NewP256Point()
	}
	if !c.IsOnCurve(p) {
		panic("ec: point not on curve " + c.params.Name)
	}
	q, err := nistec.NewP256Point().SetBytes(encodePoint(c.params, p))
	if err != nil {
		panic("ec: " + err.Error())
	}
	return q
}

func (c *nistP256) fromNistec(q *nistec.P256Point) Point {
	b := q.Bytes()
	if len(b) == 1 {
		return Infinity()
	}
	n := c.params.ByteLen()
	return Point{
		x: new(big.Int).SetBytes(b[1 : 1+n]),
		y: new(big.Int).SetBytes(b[1+n:]),
	}
}

func (c *nistP256) scalar(k *big.Int) []byte {
	r := new(big.Int).Mod(k, c.params.N)
	return r.FillBytes(make([]byte, c.params.ByteLen()))
}

func (c *nistP256) Add(p, q Point) Point {
	return c.fromNistec(nistec.NewP256Point().Add(c.toNistec(p), c.toNistec(q)))
}

func (c *nistP256) ScalarMult(p Point, k *big.Int) Point {
	r, err := nistec.NewP256Point().ScalarMult(c.toNistec(p), c.scalar(k))
	if err != nil {
		panic("ec: " + err.Error())
	}
	return c.fromNistec(r)
}

func (c *nistP256) ScalarBaseMult(k *big.Int) Point {
	r, err := nistec.NewP256Point().ScalarBaseMult(c.scalar(k))
	if err != nil {
		panic("ec: " + err.Error())
	}
	return c.fromNistec(r)
}

func (c *nistP256) IsOnCurve(p Point) bool {
	if p.IsInfinity() || p.x.Sign() < 0 || p.y.Sign() < 0 {
		return false
	}
	if p.x.Cmp(c.params.P) >= 0 || p.y.Cmp(c.params.P) >= 0 {
		return false
	}
	_, err := nistec.NewP256Point().SetBytes(encodePoint(c.params, p))
	return err == nil
}

func (c *nistP256) Encode(p Point) []byte { return encodePoint(c.params, p) }

func (c *nistP256) Decode(b []byte) (Point, error) { return decodePoint(c, c.params, b) }
