package sm2

import "errors"

var (
	// ErrInfinity reports a shared point at infinity. The exchange may be
	// retried by the caller with fresh ephemeral keys.
	ErrInfinity = errors.New("sm2: key exchange failed, shared point is infinity")
	// ErrAuthentication reports a confirmation tag or identity mismatch.
	ErrAuthentication = errors.New("sm2: peer authentication failed")
	ErrInvalidMessage = errors.New("sm2: invalid key exchange message")
	ErrSessionState   = errors.New("sm2: key exchange step out of order")
	ErrKeyLength      = errors.New("sm2: key length must be positive")
	ErrCurveMismatch  = errors.New("sm2: peer key is not on the local curve")

	ErrInvalidPrivateKey = errors.New("sm2: invalid private key")
	ErrUIDTooLong        = errors.New("sm2: the uid is too long")
)
