package sm2_test

import (
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentoys/gmcrypto/crypto/ec"
	"github.com/opentoys/gmcrypto/crypto/sm2"
	"github.com/opentoys/gmcrypto/crypto/sm3"
)

// The helpers below compute one side of the exchange straight from
// GB/T 32918.3 on crypto/elliptic, sharing no code with the package.

func refCurve() *elliptic.CurveParams {
	h := func(s string) *big.Int {
		v, _ := new(big.Int).SetString(s, 16)
		return v
	}
	return &elliptic.CurveParams{
		Name:    "sm2p256v1",
		P:       h("FFFFFFFEFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF00000000FFFFFFFFFFFFFFFF"),
		N:       h("FFFFFFFEFFFFFFFFFFFFFFFFFFFFFFFF7203DF6B21C6052B53BBF40939D54123"),
		B:       h("28E9FA9E9D9F5E344D5A9E4BCF6509A7F39789F515AB8F92DDBCBD414D940E93"),
		Gx:      h("32C4AE2C1F1981195F9904466A39C9948FE30BBFF2660BE1715A4589334C74C7"),
		Gy:      h("BC3736A2F4F6779C59BDCEE36B692153D0A9877CC62A474002DF32E52139F0A0"),
		BitSize: 256,
	}
}

func refHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func be32(v *big.Int) []byte { return v.FillBytes(make([]byte, 32)) }

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func refEncode(x, y *big.Int) []byte { return cat([]byte{0x04}, be32(x), be32(y)) }

func refDecode(t *testing.T, cp *elliptic.CurveParams, b []byte) (*big.Int, *big.Int) {
	t.Helper()
	require.Len(t, b, 65)
	require.Equal(t, byte(0x04), b[0])
	x, y := new(big.Int).SetBytes(b[1:33]), new(big.Int).SetBytes(b[33:])
	require.True(t, cp.IsOnCurve(x, y))
	return x, y
}

func refZ(cp *elliptic.CurveParams, uid []byte, x, y *big.Int) []byte {
	entl := len(uid) * 8
	a := new(big.Int).Sub(cp.P, big.NewInt(3))
	z := sm3.Sum(cat([]byte{byte(entl >> 8), byte(entl)}, uid,
		be32(a), be32(cp.B), be32(cp.Gx), be32(cp.Gy), be32(x), be32(y)))
	return z[:]
}

// refXBar is 2^127 + (x mod 2^127) for a 256-bit order.
func refXBar(x *big.Int) *big.Int {
	w := new(big.Int).Lsh(big.NewInt(1), 127)
	v := new(big.Int).Mod(x, w)
	return v.Add(v, w)
}

// refShared is [(d + x̄(R_own) r) mod n](P_peer + [x̄(R_peer)]R_peer).
func refShared(cp *elliptic.CurveParams, d, r, ownRx, peerX, peerY, peerRx, peerRy *big.Int) (*big.Int, *big.Int) {
	t := refXBar(ownRx)
	t.Mul(t, r)
	t.Add(t, d)
	t.Mod(t, cp.N)
	qx, qy := cp.ScalarMult(peerRx, peerRy, refXBar(peerRx).Bytes())
	qx, qy = cp.Add(peerX, peerY, qx, qy)
	return cp.ScalarMult(qx, qy, t.Bytes())
}

func refKDF(z []byte, klen int) []byte {
	var out []byte
	for ct := uint32(1); len(out) < klen; ct++ {
		h := sm3.New()
		h.Write(z)
		h.Write([]byte{byte(ct >> 24), byte(ct >> 16), byte(ct >> 8), byte(ct)})
		out = h.Sum(out)
	}
	return out[:klen]
}

// refTags returns SB (prefix 0x02) and SA (prefix 0x03).
func refTags(ux, uy *big.Int, za, zb []byte, x1, y1, x2, y2 *big.Int) ([]byte, []byte) {
	inner := sm3.Sum(cat(be32(ux), za, zb, be32(x1), be32(y1), be32(x2), be32(y2)))
	sb := sm3.Sum(cat([]byte{0x02}, be32(uy), inner[:]))
	sa := sm3.Sum(cat([]byte{0x03}, be32(uy), inner[:]))
	return sb[:], sa[:]
}

type refFixture struct {
	cp         *elliptic.CurveParams
	dA, dB     *big.Int
	xA, yA     *big.Int
	xB, yB     *big.Int
	uidA, uidB []byte
	zA, zB     []byte
	alice, bob *sm2.Party
	pubA, pubB *sm2.PublicKey
	keyLen     int
}

func newRefFixture(t *testing.T) *refFixture {
	t.Helper()
	f := &refFixture{
		cp:     refCurve(),
		uidA:   []byte("ALICE123@YAHOO.COM"),
		uidB:   []byte("BILL456@YAHOO.COM"),
		keyLen: 16,
	}
	dA := refHex(t, "81eb26e941bb5af16df116495f90695272ae2cd63d6c4ae1678418be48230029")
	dB := refHex(t, "785129917d45a9ea5437a59356b82338eaadda6ceb199088f14ae10defa229b5")
	f.dA, f.dB = new(big.Int).SetBytes(dA), new(big.Int).SetBytes(dB)
	f.xA, f.yA = f.cp.ScalarBaseMult(dA)
	f.xB, f.yB = f.cp.ScalarBaseMult(dB)
	f.zA = refZ(f.cp, f.uidA, f.xA, f.yA)
	f.zB = refZ(f.cp, f.uidB, f.xB, f.yB)

	c := ec.SM2P256V1()
	ka, err := sm2.NewPrivateKey(c, dA)
	require.NoError(t, err)
	kb, err := sm2.NewPrivateKey(c, dB)
	require.NoError(t, err)
	f.alice, err = sm2.NewParty(ka, f.uidA)
	require.NoError(t, err)
	f.bob, err = sm2.NewParty(kb, f.uidB)
	require.NoError(t, err)
	f.pubA, f.pubB = f.alice.PublicKey(), f.bob.PublicKey()

	require.Equal(t, refEncode(f.xA, f.yA), f.pubA.Bytes())
	require.Equal(t, f.zA, f.alice.Z())
	require.Equal(t, f.zB, f.bob.Z())
	return f
}

func TestResponderAgainstIndependentInitiator(t *testing.T) {
	f := newRefFixture(t)
	cp := f.cp

	rA := new(big.Int).SetBytes(refHex(t, "d4de15474db74d06491c440d305e012400990f3e390c7e87153c12db2ea60bb3"))
	x1, y1 := cp.ScalarBaseMult(rA.Bytes())

	res, err := sm2.NewResponder(f.bob, f.pubA, f.keyLen, sm2.WithPeerUID(f.uidA))
	require.NoError(t, err)
	reply, err := res.Respond(rand.Reader, &sm2.InitiatorHello{R: refEncode(x1, y1), Z: f.zA})
	require.NoError(t, err)
	assert.Equal(t, f.zB, reply.Z)

	x2, y2 := refDecode(t, cp, reply.R)
	ux, uy := refShared(cp, f.dA, rA, x1, f.xB, f.yB, x2, y2)
	sb, sa := refTags(ux, uy, f.zA, f.zB, x1, y1, x2, y2)
	want := refKDF(cat(be32(ux), be32(uy), f.zA, f.zB), f.keyLen)

	assert.Equal(t, hex.EncodeToString(sb), hex.EncodeToString(reply.S))
	key, err := res.Confirm(&sm2.InitiatorConfirm{R: refEncode(x1, y1), S: sa})
	require.NoError(t, err)
	assert.Equal(t, want, key)
}

func TestInitiatorAgainstIndependentResponder(t *testing.T) {
	f := newRefFixture(t)
	cp := f.cp

	ini, err := sm2.NewInitiator(f.alice, f.pubB, f.keyLen, sm2.WithPeerUID(f.uidB))
	require.NoError(t, err)
	hello, err := ini.Start(rand.Reader)
	require.NoError(t, err)
	assert.Equal(t, f.zA, hello.Z)
	x1, y1 := refDecode(t, cp, hello.R)

	rB := new(big.Int).SetBytes(refHex(t, "7e07124814b309489125eaed101113164ebf0f3458c5bd88335c1f9d596243d6"))
	x2, y2 := cp.ScalarBaseMult(rB.Bytes())
	vx, vy := refShared(cp, f.dB, rB, x2, f.xA, f.yA, x1, y1)
	sb, sa := refTags(vx, vy, f.zA, f.zB, x1, y1, x2, y2)
	want := refKDF(cat(be32(vx), be32(vy), f.zA, f.zB), f.keyLen)

	key, confirm, err := ini.Finish(&sm2.ResponderReply{R: refEncode(x2, y2), S: sb, Z: f.zB})
	require.NoError(t, err)
	assert.Equal(t, want, key)
	assert.Equal(t, hello.R, confirm.R)
	assert.Equal(t, hex.EncodeToString(sa), hex.EncodeToString(confirm.S))
}

func TestInitiatorRejectsSwappedTagPrefix(t *testing.T) {
	f := newRefFixture(t)
	cp := f.cp

	ini, err := sm2.NewInitiator(f.alice, f.pubB, f.keyLen)
	require.NoError(t, err)
	hello, err := ini.Start(rand.Reader)
	require.NoError(t, err)
	x1, y1 := refDecode(t, cp, hello.R)

	rB := big.NewInt(0x1234567)
	x2, y2 := cp.ScalarBaseMult(rB.Bytes())
	vx, vy := refShared(cp, f.dB, rB, x2, f.xA, f.yA, x1, y1)
	_, sa := refTags(vx, vy, f.zA, f.zB, x1, y1, x2, y2)

	// SA in place of SB must not be accepted.
	_, _, err = ini.Finish(&sm2.ResponderReply{R: refEncode(x2, y2), S: sa, Z: f.zB})
	assert.ErrorIs(t, err, sm2.ErrAuthentication)
}
