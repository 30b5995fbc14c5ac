package packet

import (
	"encoding/binary"
	"time"

	"github.com/pgpcore/pgpcore/pgperrors"
)

// LiteralData is a parsed literal data packet: the message payload plus the
// metadata a text-mode signature may cover.
type LiteralData struct {
	// Format is 'b' for binary, 't' or 'u' for text.
	Format   byte
	FileName string
	Time     time.Time
	Contents []byte
}

func (ld *LiteralData) PacketTag() Tag { return TagLiteralData }

// IsBinary reports whether the payload is declared as binary.
func (ld *LiteralData) IsBinary() bool { return ld.Format == 'b' }

func parseLiteralData(body []byte) (*LiteralData, error) {
	if len(body) < 2 {
		return nil, pgperrors.MalformedPacketError{Reason: "truncated literal data packet"}
	}
	nameLen := int(body[1])
	if len(body) < 2+nameLen+4 {
		return nil, pgperrors.MalformedPacketError{Reason: "truncated literal data packet"}
	}
	ld := &LiteralData{
		Format:   body[0],
		FileName: string(body[2 : 2+nameLen]),
	}
	ld.Time = time.Unix(int64(binary.BigEndian.Uint32(body[2+nameLen:6+nameLen])), 0)
	ld.Contents = body[6+nameLen:]
	return ld, nil
}
