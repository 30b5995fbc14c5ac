// Package packet implements the binary OpenPGP packet framing (RFC 4880)
// and the packet types needed to decrypt and verify messages: encrypted
// session keys, integrity protected data, literal data, compressed data,
// one-pass signatures and signatures, plus key material packets.
//
// The package is deliberately limited to what message decryption and
// verification require. It performs no I/O beyond consuming the given
// input and holds no state across calls.
package packet

import (
	"bytes"
	"io"

	"github.com/pgpcore/pgpcore/pgperrors"
)

// Tag identifies an OpenPGP packet type.
type Tag uint8

const (
	TagEncryptedKey             Tag = 1
	TagSignature                Tag = 2
	TagSymmetricKeyEncrypted    Tag = 3
	TagOnePassSignature         Tag = 4
	TagSecretKey                Tag = 5
	TagPublicKey                Tag = 6
	TagSecretSubkey             Tag = 7
	TagCompressed               Tag = 8
	TagSymmetricallyEncrypted   Tag = 9
	TagMarker                   Tag = 10
	TagLiteralData              Tag = 11
	TagTrust                    Tag = 12
	TagUserID                   Tag = 13
	TagPublicSubkey             Tag = 14
	TagUserAttribute            Tag = 17
	TagSymEncIntegrityProtected Tag = 18
	TagMDC                      Tag = 19
	TagAEADEncrypted            Tag = 20
)

// Packet is a parsed OpenPGP packet.
type Packet interface {
	// PacketTag returns the wire tag of the packet.
	PacketTag() Tag
}

// OpaquePacket holds a packet this package recognizes structurally but does
// not parse, so that readers can skip over it.
type OpaquePacket struct {
	Tag  Tag
	Body []byte
}

func (p *OpaquePacket) PacketTag() Tag { return p.Tag }

// readHeader reads one packet header and returns the tag and the full body.
// Partial body lengths (new format) and indeterminate lengths (old format)
// are collected into a single contiguous body.
func readHeader(r io.Reader) (Tag, []byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, nil, err
	}
	hdr := buf[0]
	if hdr&0x80 == 0 {
		return 0, nil, pgperrors.MalformedPacketError{Reason: "tag byte has no marker bit"}
	}
	if hdr&0x40 != 0 {
		// New format packet.
		tag := Tag(hdr & 0x3f)
		body, err := readNewFormatBody(r)
		if err != nil {
			return 0, nil, err
		}
		return tag, body, nil
	}
	// Old format packet.
	tag := Tag((hdr & 0x3c) >> 2)
	lenType := hdr & 0x03
	var length int64
	switch lenType {
	case 0:
		n, err := readBytes(r, 1)
		if err != nil {
			return 0, nil, err
		}
		length = int64(n[0])
	case 1:
		n, err := readBytes(r, 2)
		if err != nil {
			return 0, nil, err
		}
		length = int64(n[0])<<8 | int64(n[1])
	case 2:
		n, err := readBytes(r, 4)
		if err != nil {
			return 0, nil, err
		}
		length = int64(n[0])<<24 | int64(n[1])<<16 | int64(n[2])<<8 | int64(n[3])
	case 3:
		// Indeterminate length: the body extends to the end of the input.
		body, err := io.ReadAll(r)
		if err != nil {
			return 0, nil, pgperrors.MalformedPacketError{Reason: "truncated indeterminate length packet"}
		}
		return tag, body, nil
	}
	body, err := readBytes(r, length)
	if err != nil {
		return 0, nil, err
	}
	return tag, body, nil
}

// readNewFormatBody reads a new-format body, following chained partial
// body lengths until the final definite length.
func readNewFormatBody(r io.Reader) ([]byte, error) {
	var body bytes.Buffer
	for {
		length, partial, err := readNewFormatLength(r)
		if err != nil {
			return nil, err
		}
		chunk, err := readBytes(r, length)
		if err != nil {
			return nil, err
		}
		body.Write(chunk)
		if !partial {
			return body.Bytes(), nil
		}
	}
}

func readNewFormatLength(r io.Reader) (length int64, partial bool, err error) {
	b, err := readBytes(r, 1)
	if err != nil {
		return 0, false, err
	}
	switch {
	case b[0] < 192:
		return int64(b[0]), false, nil
	case b[0] < 224:
		second, err := readBytes(r, 1)
		if err != nil {
			return 0, false, err
		}
		return int64(b[0]-192)<<8 + int64(second[0]) + 192, false, nil
	case b[0] == 255:
		n, err := readBytes(r, 4)
		if err != nil {
			return 0, false, err
		}
		length = int64(n[0])<<24 | int64(n[1])<<16 | int64(n[2])<<8 | int64(n[3])
		return length, false, nil
	default:
		// Partial body length, a power of two between 1 and 2^30.
		return int64(1) << (b[0] & 0x1f), true, nil
	}
}

// readBytes reads exactly n bytes, mapping a short read to a
// MalformedPacketError: a declared length that exceeds the remaining
// input is a framing defect, not an I/O condition.
func readBytes(r io.Reader, n int64) ([]byte, error) {
	if n < 0 {
		return nil, pgperrors.MalformedPacketError{Reason: "negative length"}
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, pgperrors.MalformedPacketError{Reason: "declared length exceeds remaining bytes"}
		}
		return nil, err
	}
	return buf, nil
}

// Reader reads a finite sequence of packets from an OpenPGP stream. A new
// Reader over the same input restarts the sequence from the beginning.
type Reader struct {
	r io.Reader
}

// NewReader returns a packet reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next reads and parses the next packet. It returns io.EOF when the input
// is exhausted on a packet boundary, and MalformedPacketError when the
// framing or a required structure is invalid.
func (pr *Reader) Next() (Packet, error) {
	tag, body, err := readHeader(pr.r)
	if err != nil {
		return nil, err
	}
	return parseBody(tag, body)
}

func parseBody(tag Tag, body []byte) (Packet, error) {
	switch tag {
	case TagEncryptedKey:
		return parseEncryptedKey(body)
	case TagSignature:
		return parseSignature(body)
	case TagOnePassSignature:
		return parseOnePassSignature(body)
	case TagSecretKey, TagSecretSubkey:
		return parseSecretKey(tag, body)
	case TagPublicKey, TagPublicSubkey:
		return parsePublicKey(tag, body)
	case TagCompressed:
		return parseCompressed(body)
	case TagSymmetricallyEncrypted:
		return &SymmetricallyEncrypted{Contents: body}, nil
	case TagLiteralData:
		return parseLiteralData(body)
	case TagUserID:
		return &UserID{ID: string(body)}, nil
	case TagSymEncIntegrityProtected:
		return parseSymEncIntegrityProtected(body)
	case TagAEADEncrypted:
		return parseAEADEncrypted(body)
	default:
		// Marker, trust, private/experimental and other tags we do not
		// interpret are carried opaquely so readers can skip them.
		return &OpaquePacket{Tag: tag, Body: body}, nil
	}
}
