package sm3

import "encoding/binary"

// Kdf derives keyLen bytes from z as specified by GB/T 32918.4-2016 5.4.3:
// SM3(z || ct) for a big-endian 32-bit counter ct starting at 1, concatenated
// and truncated to keyLen.
func Kdf(z []byte, keyLen int) []byte {
	if keyLen <= 0 {
		return []byte{}
	}
	limit := (uint64(keyLen) + Size - 1) / Size
	if limit >= 1<<32-1 {
		panic("sm3: kdf key length too long")
	}

	var base digest
	base.Reset()
	base.Write(z)

	out := make([]byte, 0, limit*Size)
	var ct [4]byte
	for i := uint64(1); i <= limit; i++ {
		binary.BigEndian.PutUint32(ct[:], uint32(i))
		md := base
		md.Write(ct[:])
		sum := md.checkSum()
		out = append(out, sum[:]...)
	}
	return out[:keyLen]
}
