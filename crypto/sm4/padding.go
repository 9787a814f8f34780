package sm4

import (
	"crypto/subtle"
	"fmt"
	"strings"
)

// Padding selects how plaintext is extended to a whole number of blocks.
type Padding uint8

const (
	Pkcs7 Padding = iota
	AnsiX923
	Iso97971
	No
)

func (p Padding) String() string {
	switch p {
	case Pkcs7:
		return "pkcs7"
	case AnsiX923:
		return "ansix923"
	case Iso97971:
		return "iso97971"
	case No:
		return "none"
	}
	return fmt.Sprintf("Padding(%d)", uint8(p))
}

// ParsePadding maps a padding name as printed by String back to its value.
func ParsePadding(s string) (Padding, error) {
	switch strings.ToLower(s) {
	case "pkcs7", "pkcs5":
		return Pkcs7, nil
	case "ansix923", "x923":
		return AnsiX923, nil
	case "iso97971", "iso7816":
		return Iso97971, nil
	case "none", "no":
		return No, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownPadding, s)
}

// Pad returns a new slice holding src followed by the padding. src is never
// modified. For No the input must already be block aligned.
func (p Padding) Pad(src []byte) ([]byte, error) {
	n := BlockSize - len(src)%BlockSize
	switch p {
	case Pkcs7:
		buf := make([]byte, len(src)+n)
		copy(buf, src)
		for i := len(src); i < len(buf); i++ {
			buf[i] = byte(n)
		}
		return buf, nil
	case AnsiX923:
		buf := make([]byte, len(src)+n)
		copy(buf, src)
		buf[len(buf)-1] = byte(n)
		return buf, nil
	case Iso97971:
		buf := make([]byte, len(src)+n)
		copy(buf, src)
		buf[len(src)] = 0x80
		return buf, nil
	case No:
		if len(src)%BlockSize != 0 {
			return nil, ErrNotFullBlocks
		}
		return append([]byte(nil), src...), nil
	}
	return nil, fmt.Errorf("%w %v", ErrUnknownPadding, p)
}

// Unpad strips and verifies the padding of a decrypted, block aligned
// buffer. The returned slice aliases src.
func (p Padding) Unpad(src []byte) ([]byte, error) {
	if len(src)%BlockSize != 0 {
		return nil, ErrNotFullBlocks
	}
	if p == No {
		return src, nil
	}
	if len(src) == 0 {
		return nil, ErrPadding
	}

	switch p {
	case Pkcs7:
		n := int(src[len(src)-1])
		if n == 0 || n > BlockSize {
			return nil, ErrPadding
		}
		var bad byte
		for _, b := range src[len(src)-n:] {
			bad |= b ^ byte(n)
		}
		if subtle.ConstantTimeByteEq(bad, 0) != 1 {
			return nil, ErrPadding
		}
		return src[:len(src)-n], nil
	case AnsiX923:
		n := int(src[len(src)-1])
		if n == 0 || n > BlockSize {
			return nil, ErrPadding
		}
		var bad byte
		for _, b := range src[len(src)-n : len(src)-1] {
			bad |= b
		}
		if subtle.ConstantTimeByteEq(bad, 0) != 1 {
			return nil, ErrPadding
		}
		return src[:len(src)-n], nil
	case Iso97971:
		last := src[len(src)-BlockSize:]
		i := len(last) - 1
		for i >= 0 && last[i] == 0 {
			i--
		}
		if i < 0 || last[i] != 0x80 {
			return nil, ErrPadding
		}
		return src[:len(src)-BlockSize+i], nil
	}
	return nil, fmt.Errorf("%w %v", ErrUnknownPadding, p)
}
