package sm2

import (
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"github.com/google/uuid"

	"github.com/opentoys/gmcrypto/crypto/ec"
	"github.com/opentoys/gmcrypto/crypto/sm3"
	"github.com/opentoys/gmcrypto/logx"
)

// InitiatorHello is the first message, A to B.
type InitiatorHello struct {
	R []byte // encoded ephemeral point RA
	Z []byte // ZA
}

// ResponderReply is the second message, B to A.
type ResponderReply struct {
	R []byte // encoded ephemeral point RB
	S []byte // confirmation tag SB
	Z []byte // ZB
}

// InitiatorConfirm is the final message, A to B.
type InitiatorConfirm struct {
	R []byte // RA, repeated
	S []byte // confirmation tag SA
}

const (
	tagResponder byte = 0x02
	tagInitiator byte = 0x03
)

type state uint8

const (
	stateNew state = iota
	stateWaiting
	stateDone
	stateFailed
)

type config struct {
	log     *slog.Logger
	peerUID []byte
}

type Option func(*config)

// WithLogger traces protocol steps. Secrets are never logged.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// WithPeerUID pins the peer's identity. A received Z that does not match
// CalculateZA(peer, uid) fails the exchange with ErrAuthentication.
func WithPeerUID(uid []byte) Option {
	return func(c *config) {
		if len(uid) == 0 {
			uid = DefaultUID
		}
		c.peerUID = append([]byte(nil), uid...)
	}
}

// session holds the state one party keeps between two protocol steps.
// It is single use and not safe for concurrent use.
type session struct {
	id     uuid.UUID
	role   string
	self   *Party
	peer   *PublicKey
	curve  ec.Curve
	params *ec.Params
	keyLen int
	log    *slog.Logger
	wantZ  []byte // expected peer Z when pinned

	w2       *big.Int // 2^w
	w2Minus1 *big.Int // 2^w - 1

	r     *big.Int // ephemeral private key
	rEnc  []byte   // own encoded ephemeral point
	state state
}

func newSession(role string, self *Party, peer *PublicKey, keyLen int, opts []Option) (*session, error) {
	if self == nil || peer == nil {
		return nil, fmt.Errorf("%w: missing party or peer key", ErrInvalidMessage)
	}
	if keyLen <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrKeyLength, keyLen)
	}
	curve := self.key.Curve
	if peer.Curve != curve {
		return nil, ErrCurveMismatch
	}
	if !curve.IsOnCurve(peer.Point) {
		return nil, fmt.Errorf("sm2: peer public key: %w", ec.ErrInvalidEncoding)
	}

	cfg := config{log: logx.Discard()}
	for _, o := range opts {
		o(&cfg)
	}

	s := &session{
		id:     uuid.New(),
		role:   role,
		self:   self,
		peer:   peer,
		curve:  curve,
		params: curve.Params(),
		keyLen: keyLen,
	}
	if cfg.peerUID != nil {
		z, err := CalculateZA(peer, cfg.peerUID)
		if err != nil {
			return nil, err
		}
		s.wantZ = z
	}

	// w = ceil(bitlen(n)/2) - 1
	w := (s.params.N.BitLen()+1)/2 - 1
	s.w2 = new(big.Int).Lsh(one, uint(w))
	s.w2Minus1 = new(big.Int).Sub(s.w2, one)
	s.log = cfg.log.With("session", s.id.String(), "role", role, "curve", s.params.Name)
	return s, nil
}

// avf is the associative value function x' = 2^w + (x & (2^w - 1)).
func (s *session) avf(x *big.Int) *big.Int {
	t := new(big.Int).And(s.w2Minus1, x)
	return t.Add(s.w2, t)
}

func (s *session) ephemeral(random io.Reader) (ec.Point, error) {
	r, err := randScalar(s.curve, random)
	if err != nil {
		return ec.Point{}, err
	}
	s.r = r
	p := s.curve.ScalarBaseMult(r)
	s.rEnc = s.curve.Encode(p)
	return p, nil
}

// mqv returns V = [h][t](P_peer + [x'_peer]R_peer) with
// t = (d + x'_self * r) mod n.
func (s *session) mqv(self, peer ec.Point) (ec.Point, error) {
	params := s.params
	t := s.avf(self.X())
	t.Mul(t, s.r)
	t.Add(t, s.self.key.D)
	t.Mod(t, params.N)

	x := s.avf(peer.X())
	q := s.curve.Add(s.peer.Point, s.curve.ScalarMult(peer, x))
	v := s.curve.ScalarMult(q, t)
	destroyBigInt(t)
	if params.H.Cmp(one) != 0 {
		v = s.curve.ScalarMult(v, params.H)
	}
	if v.IsInfinity() {
		return ec.Point{}, ErrInfinity
	}
	return v, nil
}

func (s *session) coord(v *big.Int) []byte {
	return v.FillBytes(make([]byte, s.params.ByteLen()))
}

// sharedKey is KDF(xV || yV || ZA || ZB, klen).
func (s *session) sharedKey(v ec.Point, za, zb []byte) []byte {
	var buf []byte
	buf = append(buf, s.coord(v.X())...)
	buf = append(buf, s.coord(v.Y())...)
	buf = append(buf, za...)
	buf = append(buf, zb...)
	key := sm3.Kdf(buf, s.keyLen)
	destroyBytes(buf)
	return key
}

// tag is SM3(prefix || yV || SM3(xV || ZA || ZB || x1 || y1 || x2 || y2)).
func (s *session) tag(prefix byte, v ec.Point, za, zb []byte, ra, rb ec.Point) []byte {
	h := sm3.New()
	h.Write(s.coord(v.X()))
	h.Write(za)
	h.Write(zb)
	h.Write(s.coord(ra.X()))
	h.Write(s.coord(ra.Y()))
	h.Write(s.coord(rb.X()))
	h.Write(s.coord(rb.Y()))
	inner := h.Sum(nil)

	h.Reset()
	h.Write([]byte{prefix})
	h.Write(s.coord(v.Y()))
	h.Write(inner)
	return h.Sum(nil)
}

func (s *session) checkPeerZ(z []byte) error {
	if len(z) != sm3.Size {
		return fmt.Errorf("%w: Z length %d", ErrInvalidMessage, len(z))
	}
	if s.wantZ != nil && subtle.ConstantTimeCompare(z, s.wantZ) != 1 {
		return fmt.Errorf("%w: peer identity mismatch", ErrAuthentication)
	}
	return nil
}

func (s *session) decodePeer(b []byte) (ec.Point, error) {
	p, err := s.curve.Decode(b)
	if err != nil {
		return ec.Point{}, fmt.Errorf("sm2: peer ephemeral key: %w", err)
	}
	return p, nil
}

func (s *session) expect(st state, step string) error {
	if s.state != st {
		return fmt.Errorf("%w: %s %s", ErrSessionState, s.role, step)
	}
	return nil
}

func (s *session) fail(step string, err error) error {
	s.destroy()
	s.state = stateFailed
	s.log.Warn("sm2 key exchange aborted", "step", step, "err", err)
	return err
}

func (s *session) destroy() {
	destroyBigInt(s.r)
	s.r = nil
}

// Initiator is party A.
type Initiator struct {
	s  *session
	ra ec.Point
}

// NewInitiator prepares party A for one exchange with the holder of peer.
func NewInitiator(self *Party, peer *PublicKey, keyLen int, opts ...Option) (*Initiator, error) {
	s, err := newSession("initiator", self, peer, keyLen, opts)
	if err != nil {
		return nil, err
	}
	return &Initiator{s: s}, nil
}

// ID identifies the session in log records.
func (a *Initiator) ID() uuid.UUID { return a.s.id }

// Start draws the ephemeral key RA and returns the hello message.
func (a *Initiator) Start(random io.Reader) (*InitiatorHello, error) {
	s := a.s
	if err := s.expect(stateNew, "start"); err != nil {
		return nil, err
	}
	ra, err := s.ephemeral(random)
	if err != nil {
		return nil, s.fail("start", err)
	}
	a.ra = ra
	s.state = stateWaiting
	s.log.Debug("sm2 key exchange step", "step", "start")
	return &InitiatorHello{R: append([]byte(nil), s.rEnc...), Z: s.self.Z()}, nil
}

// Finish verifies the responder's tag SB and returns the session key with
// the confirmation message. On any error no key is produced and the session
// is finished.
func (a *Initiator) Finish(reply *ResponderReply) ([]byte, *InitiatorConfirm, error) {
	s := a.s
	if err := s.expect(stateWaiting, "finish"); err != nil {
		return nil, nil, err
	}
	if reply == nil {
		return nil, nil, s.fail("finish", fmt.Errorf("%w: nil reply", ErrInvalidMessage))
	}
	if err := s.checkPeerZ(reply.Z); err != nil {
		return nil, nil, s.fail("finish", err)
	}
	if len(reply.S) != sm3.Size {
		return nil, nil, s.fail("finish", fmt.Errorf("%w: tag length %d", ErrInvalidMessage, len(reply.S)))
	}
	rb, err := s.decodePeer(reply.R)
	if err != nil {
		return nil, nil, s.fail("finish", err)
	}

	u, err := s.mqv(a.ra, rb)
	if err != nil {
		return nil, nil, s.fail("finish", err)
	}
	za, zb := s.self.z, reply.Z
	if subtle.ConstantTimeCompare(s.tag(tagResponder, u, za, zb, a.ra, rb), reply.S) != 1 {
		return nil, nil, s.fail("finish", fmt.Errorf("%w: responder tag mismatch", ErrAuthentication))
	}

	key := s.sharedKey(u, za, zb)
	confirm := &InitiatorConfirm{
		R: append([]byte(nil), s.rEnc...),
		S: s.tag(tagInitiator, u, za, zb, a.ra, rb),
	}
	s.destroy()
	s.state = stateDone
	s.log.Debug("sm2 key exchange step", "step", "finish", "key_len", len(key))
	return key, confirm, nil
}

// Destroy clears the ephemeral state and ends the session.
func (a *Initiator) Destroy() {
	a.s.destroy()
	a.s.state = stateFailed
}

// Responder is party B.
type Responder struct {
	s      *session
	key    []byte
	wantSA []byte
}

// NewResponder prepares party B for one exchange with the holder of peer.
func NewResponder(self *Party, peer *PublicKey, keyLen int, opts ...Option) (*Responder, error) {
	s, err := newSession("responder", self, peer, keyLen, opts)
	if err != nil {
		return nil, err
	}
	return &Responder{s: s}, nil
}

func (b *Responder) ID() uuid.UUID { return b.s.id }

// Respond processes the hello, derives the session key and returns the reply
// carrying RB and the tag SB. The key is released by Confirm once the
// initiator has proven it holds the same key.
func (b *Responder) Respond(random io.Reader, hello *InitiatorHello) (*ResponderReply, error) {
	s := b.s
	if err := s.expect(stateNew, "respond"); err != nil {
		return nil, err
	}
	if hello == nil {
		return nil, s.fail("respond", fmt.Errorf("%w: nil hello", ErrInvalidMessage))
	}
	if err := s.checkPeerZ(hello.Z); err != nil {
		return nil, s.fail("respond", err)
	}
	ra, err := s.decodePeer(hello.R)
	if err != nil {
		return nil, s.fail("respond", err)
	}
	rb, err := s.ephemeral(random)
	if err != nil {
		return nil, s.fail("respond", err)
	}

	v, err := s.mqv(rb, ra)
	if err != nil {
		return nil, s.fail("respond", err)
	}
	za, zb := append([]byte(nil), hello.Z...), s.self.z
	b.key = s.sharedKey(v, za, zb)
	b.wantSA = s.tag(tagInitiator, v, za, zb, ra, rb)
	reply := &ResponderReply{
		R: append([]byte(nil), s.rEnc...),
		S: s.tag(tagResponder, v, za, zb, ra, rb),
		Z: s.self.Z(),
	}
	// RA is kept in encoded form to match against the confirmation.
	s.rEnc = append([]byte(nil), hello.R...)
	s.destroy()
	s.state = stateWaiting
	s.log.Debug("sm2 key exchange step", "step", "respond")
	return reply, nil
}

// Confirm verifies the initiator's tag SA and returns the session key.
func (b *Responder) Confirm(confirm *InitiatorConfirm) ([]byte, error) {
	s := b.s
	if err := s.expect(stateWaiting, "confirm"); err != nil {
		return nil, err
	}
	if confirm == nil {
		return nil, b.fail(fmt.Errorf("%w: nil confirmation", ErrInvalidMessage))
	}
	if subtle.ConstantTimeCompare(confirm.R, s.rEnc) != 1 {
		return nil, b.fail(fmt.Errorf("%w: ephemeral key differs from hello", ErrAuthentication))
	}
	if subtle.ConstantTimeCompare(confirm.S, b.wantSA) != 1 {
		return nil, b.fail(fmt.Errorf("%w: initiator tag mismatch", ErrAuthentication))
	}
	key := b.key
	b.key, b.wantSA = nil, nil
	s.state = stateDone
	s.log.Debug("sm2 key exchange step", "step", "confirm", "key_len", len(key))
	return key, nil
}

// Verify is Confirm reduced to its outcome.
func (b *Responder) Verify(confirm *InitiatorConfirm) bool {
	_, err := b.Confirm(confirm)
	return err == nil
}

func (b *Responder) fail(err error) error {
	destroyBytes(b.key)
	b.key, b.wantSA = nil, nil
	return b.s.fail("confirm", err)
}

// Destroy clears the ephemeral state and any unconfirmed key.
func (b *Responder) Destroy() {
	destroyBytes(b.key)
	b.key, b.wantSA = nil, nil
	b.s.destroy()
	b.s.state = stateFailed
}
