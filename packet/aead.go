package packet

import (
	"crypto/cipher"
	"encoding/binary"

	"github.com/pgpcore/pgpcore/pgperrors"
)

// AEAD modes from the OpenPGP AEAD draft.
const (
	aeadModeEAX byte = 1
	aeadModeOCB byte = 2
	aeadModeGCM byte = 3
)

const aeadTagLength = 16

// AEADEncrypted is a parsed AEAD encrypted data packet (tag 20): chunked
// authenticated encryption with a final tag binding the total length.
// GCM is the supported mode.
type AEADEncrypted struct {
	Cipher        CipherFunction
	Mode          byte
	chunkSizeByte byte
	iv            []byte
	contents      []byte
}

func (ae *AEADEncrypted) PacketTag() Tag { return TagAEADEncrypted }

func parseAEADEncrypted(body []byte) (*AEADEncrypted, error) {
	if len(body) < 4 {
		return nil, pgperrors.MalformedPacketError{Reason: "truncated AEAD packet"}
	}
	if body[0] != 1 {
		return nil, pgperrors.UnsupportedError{Feature: "AEAD packet version"}
	}
	ae := &AEADEncrypted{
		Cipher:        CipherFunction(body[1]),
		Mode:          body[2],
		chunkSizeByte: body[3],
	}
	var ivLen int
	switch ae.Mode {
	case aeadModeGCM:
		ivLen = 12
	case aeadModeEAX, aeadModeOCB:
		return nil, pgperrors.UnsupportedError{Feature: "AEAD mode"}
	default:
		return nil, pgperrors.MalformedPacketError{Reason: "unknown AEAD mode"}
	}
	if ae.chunkSizeByte > 16 {
		return nil, pgperrors.MalformedPacketError{Reason: "AEAD chunk size out of range"}
	}
	rest := body[4:]
	if len(rest) < ivLen+aeadTagLength {
		return nil, pgperrors.MalformedPacketError{Reason: "truncated AEAD packet"}
	}
	ae.iv = rest[:ivLen]
	ae.contents = rest[ivLen:]
	return ae, nil
}

func (ae *AEADEncrypted) chunkSize() int {
	return 1 << (uint(ae.chunkSizeByte) + 6)
}

func (ae *AEADEncrypted) associatedData(index, totalBytes uint64, final bool) []byte {
	ad := make([]byte, 0, 21)
	ad = append(ad, 0xc0|byte(TagAEADEncrypted), 1, byte(ae.Cipher), ae.Mode, ae.chunkSizeByte)
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], index)
	ad = append(ad, idx[:]...)
	if final {
		var total [8]byte
		binary.BigEndian.PutUint64(total[:], totalBytes)
		ad = append(ad, total[:]...)
	}
	return ad
}

func (ae *AEADEncrypted) nonce(index uint64) []byte {
	nonce := make([]byte, len(ae.iv))
	copy(nonce, ae.iv)
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], index)
	offset := len(nonce) - 8
	for i := 0; i < 8; i++ {
		nonce[offset+i] ^= idx[i]
	}
	return nonce
}

// Decrypt authenticates and decrypts all chunks and the final tag. Unlike
// the CFB+MDC packet, no plaintext is ever returned on failure: each chunk
// is only released once its tag verified, and the final tag pins the total
// length against truncation.
func (ae *AEADEncrypted) Decrypt(key []byte) ([]byte, error) {
	block, err := ae.Cipher.new(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, pgperrors.IntegrityError{Reason: "AEAD initialization failed"}
	}

	chunkLen := ae.chunkSize() + aeadTagLength
	data := ae.contents
	if len(data) < aeadTagLength {
		return nil, pgperrors.MalformedPacketError{Reason: "AEAD packet shorter than final tag"}
	}
	finalTag := data[len(data)-aeadTagLength:]
	data = data[:len(data)-aeadTagLength]

	var plaintext []byte
	var index uint64
	for len(data) > 0 {
		n := chunkLen
		if n > len(data) {
			n = len(data)
		}
		chunk, err := aead.Open(nil, ae.nonce(index), data[:n], ae.associatedData(index, 0, false))
		if err != nil {
			return nil, pgperrors.IntegrityError{Reason: "AEAD chunk authentication failed"}
		}
		plaintext = append(plaintext, chunk...)
		data = data[n:]
		index++
	}

	_, err = aead.Open(nil, ae.nonce(index), finalTag, ae.associatedData(index, uint64(len(plaintext)), true))
	if err != nil {
		return nil, pgperrors.IntegrityError{Reason: "AEAD final tag authentication failed"}
	}
	return plaintext, nil
}
