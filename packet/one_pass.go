package packet

import (
	"encoding/binary"

	"github.com/pgpcore/pgpcore/pgperrors"
)

// OnePassSignature announces, ahead of the literal data, the signature that
// follows it, so a reader can hash while streaming.
type OnePassSignature struct {
	SigType    SignatureType
	HashID     byte
	PubKeyAlgo PublicKeyAlgorithm
	KeyID      uint64
	IsLast     bool
}

func (op *OnePassSignature) PacketTag() Tag { return TagOnePassSignature }

func parseOnePassSignature(body []byte) (*OnePassSignature, error) {
	if len(body) != 13 {
		return nil, pgperrors.MalformedPacketError{Reason: "one-pass signature packet has wrong length"}
	}
	if body[0] != 3 {
		return nil, pgperrors.UnsupportedError{Feature: "one-pass signature version"}
	}
	return &OnePassSignature{
		SigType:    SignatureType(body[1]),
		HashID:     body[2],
		PubKeyAlgo: PublicKeyAlgorithm(body[3]),
		KeyID:      binary.BigEndian.Uint64(body[4:12]),
		IsLast:     body[12] != 0,
	}, nil
}

// UserID is a parsed user ID packet.
type UserID struct {
	ID string
}

func (u *UserID) PacketTag() Tag { return TagUserID }
