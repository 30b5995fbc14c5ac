package packet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"

	"golang.org/x/crypto/cast5"

	"github.com/pgpcore/pgpcore/pgperrors"
)

// CipherFunction identifies a symmetric encryption algorithm.
type CipherFunction uint8

const (
	Cipher3DES   CipherFunction = 2
	CipherCAST5  CipherFunction = 3
	CipherAES128 CipherFunction = 7
	CipherAES192 CipherFunction = 8
	CipherAES256 CipherFunction = 9
)

// KeySize returns the key size of the cipher in bytes, or 0 if unknown.
func (c CipherFunction) KeySize() int {
	switch c {
	case Cipher3DES:
		return 24
	case CipherCAST5:
		return cast5.KeySize
	case CipherAES128:
		return 16
	case CipherAES192:
		return 24
	case CipherAES256:
		return 32
	}
	return 0
}

// BlockSize returns the block size of the cipher in bytes, or 0 if unknown.
func (c CipherFunction) BlockSize() int {
	switch c {
	case Cipher3DES:
		return des.BlockSize
	case CipherCAST5:
		return cast5.BlockSize
	case CipherAES128, CipherAES192, CipherAES256:
		return aes.BlockSize
	}
	return 0
}

func (c CipherFunction) new(key []byte) (cipher.Block, error) {
	if len(key) != c.KeySize() {
		return nil, pgperrors.SessionKeyError{Reason: "session key size does not match the cipher"}
	}
	switch c {
	case Cipher3DES:
		return des.NewTripleDESCipher(key)
	case CipherCAST5:
		return cast5.NewCipher(key)
	case CipherAES128, CipherAES192, CipherAES256:
		return aes.NewCipher(key)
	}
	return nil, pgperrors.UnsupportedError{Feature: "symmetric cipher algorithm"}
}
