package packet

import (
	"bytes"
	"crypto"
	_ "crypto/md5" // registers legacy hash used by old key blocks
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"

	"github.com/pgpcore/pgpcore/pgperrors"
)

// HashIDToHash maps an OpenPGP hash algorithm identifier to a crypto.Hash.
func HashIDToHash(id byte) (crypto.Hash, error) {
	switch id {
	case 1:
		return crypto.MD5, nil
	case 2:
		return crypto.SHA1, nil
	case 8:
		return crypto.SHA256, nil
	case 9:
		return crypto.SHA384, nil
	case 10:
		return crypto.SHA512, nil
	case 11:
		return crypto.SHA224, nil
	}
	return 0, pgperrors.UnsupportedError{Feature: "hash algorithm"}
}

type s2kMode uint8

const (
	s2kSimple         s2kMode = 0
	s2kSalted         s2kMode = 1
	s2kIteratedSalted s2kMode = 3
)

// s2k describes a string-to-key specifier: how a passphrase is stretched
// into a symmetric key for unlocking secret key parameters.
type s2k struct {
	mode  s2kMode
	hash  crypto.Hash
	salt  []byte
	count int
}

// parseS2K reads an S2K specifier from r.
func parseS2K(r *bytes.Reader) (*s2k, error) {
	var hdr [2]byte
	if _, err := readFullReader(r, hdr[:]); err != nil {
		return nil, err
	}
	h, err := HashIDToHash(hdr[1])
	if err != nil {
		return nil, err
	}
	out := &s2k{mode: s2kMode(hdr[0]), hash: h}
	switch out.mode {
	case s2kSimple:
	case s2kSalted, s2kIteratedSalted:
		out.salt = make([]byte, 8)
		if _, err := readFullReader(r, out.salt); err != nil {
			return nil, err
		}
		if out.mode == s2kIteratedSalted {
			c, err := r.ReadByte()
			if err != nil {
				return nil, pgperrors.MalformedPacketError{Reason: "truncated S2K count"}
			}
			out.count = decodeS2KCount(c)
		}
	default:
		return nil, pgperrors.UnsupportedError{Feature: "S2K mode"}
	}
	return out, nil
}

// decodeS2KCount expands the one-octet coded iteration count.
func decodeS2KCount(c byte) int {
	return (16 + int(c&15)) << (uint32(c>>4) + 6)
}

// deriveKey stretches the passphrase into keySize bytes. When the hash
// output is shorter than the requested key, additional hash contexts are
// run with increasing zero-byte preloads, per RFC 4880 section 3.7.1.1.
func (s *s2k) deriveKey(passphrase []byte, keySize int) []byte {
	key := make([]byte, 0, keySize)
	for instance := 0; len(key) < keySize; instance++ {
		h := s.hash.New()
		for i := 0; i < instance; i++ {
			h.Write([]byte{0})
		}
		switch s.mode {
		case s2kSimple:
			h.Write(passphrase)
		case s2kSalted:
			h.Write(s.salt)
			h.Write(passphrase)
		case s2kIteratedSalted:
			combined := make([]byte, 0, len(s.salt)+len(passphrase))
			combined = append(combined, s.salt...)
			combined = append(combined, passphrase...)
			total := s.count
			if total < len(combined) {
				total = len(combined)
			}
			for total > 0 {
				n := len(combined)
				if n > total {
					n = total
				}
				h.Write(combined[:n])
				total -= n
			}
		}
		key = append(key, h.Sum(nil)...)
	}
	return key[:keySize]
}
