package sm4

import "errors"

var (
	ErrKeySize       = errors.New("sm4: invalid key size")
	ErrIVSize        = errors.New("sm4: iv length must be 16 bytes")
	ErrNotFullBlocks = errors.New("sm4: input not full blocks")
	ErrPadding       = errors.New("sm4: invalid padding")
	ErrMode          = errors.New("sm4: unknown mode")

	ErrUnknownPadding = errors.New("sm4: unknown padding")
)
