package sm4

import (
	"crypto/cipher"
	"fmt"
	"strings"
	"sync"
)

var sm4pool = &sync.Pool{
	New: func() interface{} {
		return new(Cipher)
	},
}

// Encrypt SM4
//
// key must be 16 bytes
//
// support ECB/CBC/CTR/OFB/CFB mode
//
// support Pkcs7/AnsiX923/Iso97971/No padding, stream modes ignore padding
//
// without iv default: mode = ECB/Pkcs7padding
//
// withiv default: mode = CBC/Pkcs7padding
func Encrypt(msg, key []byte, opts ...Option) ([]byte, error) {
	var c = NewWithPool(key, opts...)
	defer c.Release()
	c = c.Encrypt(msg)
	return c.dst, c.Error
}

// Decrypt SM4, see Encrypt for the supported options.
func Decrypt(msg, key []byte, opts ...Option) ([]byte, error) {
	var c = NewWithPool(key, opts...)
	defer c.Release()
	c = c.Decrypt(msg)
	return c.dst, c.Error
}

type Mode uint8

const (
	CBC Mode = iota
	CFB
	CTR
	OFB
	ECB
)

var modeNames = [...]string{CBC: "cbc", CFB: "cfb", CTR: "ctr", OFB: "ofb", ECB: "ecb"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode maps a mode name such as "cbc" to its value.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrMode, s)
}

// stream modes turn the block cipher into a key stream and never pad.
func (m Mode) stream() bool {
	return m == CFB || m == CTR || m == OFB
}

type opt struct {
	iv      []byte
	mode    Mode
	modeSet bool
	padding Padding
}

type Option func(*opt)

func WithIV(iv []byte) Option {
	return func(o *opt) {
		o.iv = iv
	}
}

func WithMode(mode Mode) Option {
	return func(o *opt) {
		o.mode = mode
		o.modeSet = true
	}
}

func WithPadding(padding Padding) Option {
	return func(o *opt) {
		o.padding = padding
	}
}

type Cipher struct {
	key    []byte
	option *opt
	dst    []byte
	Error  error
}

// New SM4
//
//	New(key).Encrypt(msg).Bytes()
//	New(key, WithIV(iv)).Decrypt(msg).Error
func New(key []byte, opts ...Option) *Cipher {
	var c Cipher
	c.init(key, opts)
	return &c
}

// NewWithPool is New backed by a shared pool, call Release when done.
func NewWithPool(key []byte, opts ...Option) *Cipher {
	var c = sm4pool.Get().(*Cipher)
	c.init(key, opts)
	return c
}

func (s *Cipher) init(key []byte, opts []Option) {
	s.key = key
	s.option = &opt{}
	for i := range opts {
		opts[i](s.option)
	}
	if !s.option.modeSet {
		if len(s.option.iv) == 0 {
			s.option.mode = ECB
		} else {
			s.option.mode = CBC
		}
	}
	s.dst = nil
	s.Error = nil
}

// Release returns the cipher to the pool. Bytes must not be used afterwards.
func (s *Cipher) Release() {
	s.key, s.option, s.dst, s.Error = nil, nil, nil, nil
	sm4pool.Put(s)
}

func (s *Cipher) Bytes() []byte {
	return s.dst
}

func (s *Cipher) String(enc func([]byte) string) string {
	return enc(s.dst)
}

func (s *Cipher) prepare() (cipher.Block, error) {
	block, err := NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	if s.option.mode > ECB {
		return nil, fmt.Errorf("%w %v", ErrMode, s.option.mode)
	}
	if s.option.mode != ECB && len(s.option.iv) != BlockSize {
		return nil, fmt.Errorf("%w, got %d", ErrIVSize, len(s.option.iv))
	}
	return block, nil
}

func (s *Cipher) stream(block cipher.Block, src []byte, decrypt bool) []byte {
	var st cipher.Stream
	switch s.option.mode {
	case CFB:
		if decrypt {
			st = cipher.NewCFBDecrypter(block, s.option.iv)
		} else {
			st = cipher.NewCFBEncrypter(block, s.option.iv)
		}
	case CTR:
		st = cipher.NewCTR(block, s.option.iv)
	case OFB:
		st = cipher.NewOFB(block, s.option.iv)
	}
	dst := make([]byte, len(src))
	st.XORKeyStream(dst, src)
	return dst
}

// Encrypt encrypts with given mode and padding
func (s *Cipher) Encrypt(src []byte) *Cipher {
	s.dst, s.Error = nil, nil
	block, err := s.prepare()
	if err != nil {
		s.Error = err
		return s
	}

	if s.option.mode.stream() {
		s.dst = s.stream(block, src, false)
		return s
	}

	buf, err := s.option.padding.Pad(src)
	if err != nil {
		s.Error = err
		return s
	}

	switch s.option.mode {
	case ECB:
		NewECBEncrypter(block).CryptBlocks(buf, buf)
	case CBC:
		cipher.NewCBCEncrypter(block, s.option.iv).CryptBlocks(buf, buf)
	}
	s.dst = buf
	return s
}

// Decrypt decrypts with given mode and padding.
func (s *Cipher) Decrypt(src []byte) *Cipher {
	s.dst, s.Error = nil, nil
	block, err := s.prepare()
	if err != nil {
		s.Error = err
		return s
	}

	if s.option.mode.stream() {
		s.dst = s.stream(block, src, true)
		return s
	}

	if len(src)%BlockSize != 0 {
		s.Error = ErrNotFullBlocks
		return s
	}

	buf := make([]byte, len(src))
	switch s.option.mode {
	case ECB:
		NewECBDecrypter(block).CryptBlocks(buf, src)
	case CBC:
		cipher.NewCBCDecrypter(block, s.option.iv).CryptBlocks(buf, src)
	}

	s.dst, s.Error = s.option.padding.Unpad(buf)
	return s
}
