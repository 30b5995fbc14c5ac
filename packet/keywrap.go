package packet

import (
	"crypto/aes"
	"crypto/subtle"
	"encoding/binary"

	"github.com/pgpcore/pgpcore/pgperrors"
)

// keyUnwrap implements AES key unwrap (RFC 3394), used by ECDH session key
// packets. The wrapped data must be a multiple of 8 bytes and at least 24.
func keyUnwrap(kek, wrapped []byte) ([]byte, error) {
	if len(wrapped)%8 != 0 || len(wrapped) < 24 {
		return nil, pgperrors.SessionKeyError{Reason: "invalid wrapped session key length"}
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, pgperrors.SessionKeyError{Reason: "invalid key encryption key"}
	}

	n := len(wrapped)/8 - 1
	a := make([]byte, 8)
	copy(a, wrapped[:8])
	r := make([]byte, len(wrapped)-8)
	copy(r, wrapped[8:])

	buf := make([]byte, 16)
	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			copy(buf[:8], a)
			binary.BigEndian.PutUint64(buf[:8], binary.BigEndian.Uint64(buf[:8])^uint64(n*j+i))
			copy(buf[8:], r[(i-1)*8:i*8])
			block.Decrypt(buf, buf)
			copy(a, buf[:8])
			copy(r[(i-1)*8:i*8], buf[8:])
		}
	}

	iv := []byte{0xa6, 0xa6, 0xa6, 0xa6, 0xa6, 0xa6, 0xa6, 0xa6}
	if subtle.ConstantTimeCompare(a, iv) != 1 {
		return nil, pgperrors.SessionKeyError{Reason: "session key unwrap integrity check failed"}
	}
	return r, nil
}
