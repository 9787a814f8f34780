package sm2

import (
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"

	"github.com/opentoys/gmcrypto/crypto/sm3"
)

// DefaultUID is the distinguishing identifier used when none is configured.
var DefaultUID = []byte("1234567812345678")

// maxUIDLen keeps the bit length ENTL within 16 bits.
const maxUIDLen = 0x1fff

// CalculateZA returns ZA = SM3(ENTL || uid || a || b || xG || yG || xA || yA)
// per GB/T 32918.2-2016 5.5. An empty uid selects DefaultUID.
func CalculateZA(pub *PublicKey, uid []byte) ([]byte, error) {
	if len(uid) == 0 {
		uid = DefaultUID
	}
	if len(uid) > maxUIDLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrUIDTooLong, len(uid))
	}
	params := pub.Curve.Params()
	n := params.ByteLen()
	g := pub.Curve.Generator()

	var b cryptobyte.Builder
	b.AddUint16(uint16(len(uid)) << 3)
	b.AddBytes(uid)
	for _, v := range []*big.Int{
		new(big.Int).Mod(params.A, params.P),
		params.B,
		g.X(), g.Y(),
		pub.Point.X(), pub.Point.Y(),
	} {
		b.AddBytes(v.FillBytes(make([]byte, n)))
	}
	z := sm3.Sum(b.BytesOrPanic())
	return z[:], nil
}

// Party is one side of a key exchange: a static key pair bound to an
// identity. Z is computed once.
type Party struct {
	key *PrivateKey
	uid []byte
	z   []byte
}

func NewParty(key *PrivateKey, uid []byte) (*Party, error) {
	if key == nil || key.D == nil {
		return nil, ErrInvalidPrivateKey
	}
	if len(uid) == 0 {
		uid = DefaultUID
	}
	z, err := CalculateZA(&key.PublicKey, uid)
	if err != nil {
		return nil, err
	}
	return &Party{key: key, uid: append([]byte(nil), uid...), z: z}, nil
}

func (p *Party) PublicKey() *PublicKey { return &p.key.PublicKey }

func (p *Party) UID() []byte { return append([]byte(nil), p.uid...) }

// Z returns a copy of the party's identity binding value.
func (p *Party) Z() []byte { return append([]byte(nil), p.z...) }
