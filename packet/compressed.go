package packet

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"io"

	"github.com/pgpcore/pgpcore/pgperrors"
)

// Compressed is a parsed compressed data packet. Decompress yields the
// nested packet stream.
type Compressed struct {
	Algo byte
	data []byte
}

func (c *Compressed) PacketTag() Tag { return TagCompressed }

func parseCompressed(body []byte) (*Compressed, error) {
	if len(body) < 1 {
		return nil, pgperrors.MalformedPacketError{Reason: "empty compressed data packet"}
	}
	return &Compressed{Algo: body[0], data: body[1:]}, nil
}

// Decompress inflates the nested packet stream. ZIP (raw DEFLATE) and ZLIB
// are supported; the "uncompressed" algorithm passes through.
func (c *Compressed) Decompress() ([]byte, error) {
	switch c.Algo {
	case 0:
		return c.data, nil
	case 1:
		return readDecompressed(flate.NewReader(bytes.NewReader(c.data)))
	case 2:
		zr, err := zlib.NewReader(bytes.NewReader(c.data))
		if err != nil {
			return nil, pgperrors.MalformedPacketError{Reason: "invalid zlib stream"}
		}
		return readDecompressed(zr)
	default:
		return nil, pgperrors.UnsupportedError{Feature: "compression algorithm"}
	}
}

func readDecompressed(r io.ReadCloser) ([]byte, error) {
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, pgperrors.MalformedPacketError{Reason: "corrupted compressed data"}
	}
	return out, nil
}
