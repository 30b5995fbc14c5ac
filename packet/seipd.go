package packet

import (
	"crypto/cipher"
	"crypto/sha1"
	"crypto/subtle"

	"github.com/pgpcore/pgpcore/pgperrors"
)

// SymEncIntegrityProtected is a parsed symmetrically encrypted integrity
// protected data packet (tag 18, version 1): CFB encrypted contents with a
// trailing modification detection code.
type SymEncIntegrityProtected struct {
	Contents []byte
}

func (se *SymEncIntegrityProtected) PacketTag() Tag { return TagSymEncIntegrityProtected }

func parseSymEncIntegrityProtected(body []byte) (*SymEncIntegrityProtected, error) {
	if len(body) < 1 {
		return nil, pgperrors.MalformedPacketError{Reason: "empty integrity protected packet"}
	}
	if body[0] != 1 {
		return nil, pgperrors.UnsupportedError{Feature: "integrity protected packet version"}
	}
	return &SymEncIntegrityProtected{Contents: body[1:]}, nil
}

// Decrypt decrypts the packet contents and verifies the modification
// detection code in constant time. On an MDC mismatch the recovered bytes
// are returned together with an IntegrityError: callers must treat them as
// not authentic and may only expose them behind an explicit diagnostics
// opt-in.
func (se *SymEncIntegrityProtected) Decrypt(c CipherFunction, key []byte) ([]byte, error) {
	block, err := c.new(key)
	if err != nil {
		return nil, err
	}
	bs := block.BlockSize()
	// Prefix, inner packets, and the 22-byte MDC packet (0xD3 0x14 + SHA-1).
	if len(se.Contents) < bs+2+22 {
		return nil, pgperrors.MalformedPacketError{Reason: "integrity protected packet too short"}
	}
	decrypted := make([]byte, len(se.Contents))
	iv := make([]byte, bs)
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(decrypted, se.Contents)

	split := len(decrypted) - 22
	mdc := decrypted[split:]
	if mdc[0] != 0xd3 || mdc[1] != 0x14 {
		return nil, pgperrors.IntegrityError{Reason: "modification detection code packet missing"}
	}
	h := sha1.New()
	h.Write(decrypted[:split])
	h.Write(mdc[:2])
	plaintext := decrypted[bs+2 : split]
	if subtle.ConstantTimeCompare(h.Sum(nil), mdc[2:]) != 1 {
		return plaintext, pgperrors.IntegrityError{Reason: "modification detection code mismatch"}
	}
	return plaintext, nil
}

// SymmetricallyEncrypted is the legacy encrypted data packet (tag 9). It
// carries no integrity protection; recovered plaintext is never safe to
// treat as authentic.
type SymmetricallyEncrypted struct {
	Contents []byte
}

func (se *SymmetricallyEncrypted) PacketTag() Tag { return TagSymmetricallyEncrypted }

// Decrypt decrypts the legacy packet using OpenPGP CFB with resynchronization.
func (se *SymmetricallyEncrypted) Decrypt(c CipherFunction, key []byte) ([]byte, error) {
	block, err := c.new(key)
	if err != nil {
		return nil, err
	}
	bs := block.BlockSize()
	if len(se.Contents) < bs+2 {
		return nil, pgperrors.MalformedPacketError{Reason: "encrypted data packet too short"}
	}
	// Decrypt the prefix with a zero IV, then resynchronize: the stream
	// restarts with the last bs ciphertext bytes of the prefix as IV.
	prefix := make([]byte, bs+2)
	iv := make([]byte, bs)
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(prefix, se.Contents[:bs+2])
	if prefix[bs-2] != prefix[bs] || prefix[bs-1] != prefix[bs+1] {
		return nil, pgperrors.SessionKeyError{Reason: "session key check bytes mismatch"}
	}
	plaintext := make([]byte, len(se.Contents)-bs-2)
	cipher.NewCFBDecrypter(block, se.Contents[2:bs+2]).XORKeyStream(plaintext, se.Contents[bs+2:])
	return plaintext, nil
}
