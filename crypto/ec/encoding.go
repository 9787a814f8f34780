package ec

import (
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
)

const uncompressed = 0x04

func encodePoint(params *Params, p Point) []byte {
	if p.IsInfinity() {
		return []byte{0}
	}
	n := params.ByteLen()
	var b cryptobyte.Builder
	b.AddUint8(uncompressed)
	b.AddBytes(p.x.FillBytes(make([]byte, n)))
	b.AddBytes(p.y.FillBytes(make([]byte, n)))
	return b.BytesOrPanic()
}

func decodePoint(c Curve, params *Params, in []byte) (Point, error) {
	n := params.ByteLen()

	s := cryptobyte.String(in)
	var tag uint8
	if !s.ReadUint8(&tag) {
		return Point{}, fmt.Errorf("%w: empty input", ErrInvalidEncoding)
	}
	if tag != uncompressed {
		return Point{}, fmt.Errorf("%w: unsupported form %#x", ErrInvalidEncoding, tag)
	}
	var xb, yb []byte
	if !s.ReadBytes(&xb, n) || !s.ReadBytes(&yb, n) || !s.Empty() {
		return Point{}, fmt.Errorf("%w: length %d, want %d", ErrInvalidEncoding, len(in), 1+2*n)
	}

	x := new(big.Int).SetBytes(xb)
	y := new(big.Int).SetBytes(yb)
	if x.Cmp(params.P) >= 0 || y.Cmp(params.P) >= 0 {
		return Point{}, fmt.Errorf("%w: coordinate out of range", ErrInvalidEncoding)
	}
	p := Point{x: x, y: y}
	if !c.IsOnCurve(p) {
		return Point{}, fmt.Errorf("%w: point not on curve %s", ErrInvalidEncoding, params.Name)
	}
	return p, nil
}
