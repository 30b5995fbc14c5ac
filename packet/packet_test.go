package packet

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pgpcore/pgpcore/pgperrors"
)

func newFormatHeader(tag Tag, bodyLen int) []byte {
	hdr := []byte{0xc0 | byte(tag)}
	switch {
	case bodyLen < 192:
		hdr = append(hdr, byte(bodyLen))
	case bodyLen < 8384:
		bodyLen -= 192
		hdr = append(hdr, byte(bodyLen>>8)+192, byte(bodyLen))
	default:
		hdr = append(hdr, 255, byte(bodyLen>>24), byte(bodyLen>>16), byte(bodyLen>>8), byte(bodyLen))
	}
	return hdr
}

func literalPacket(t *testing.T, contents []byte) []byte {
	t.Helper()
	body := []byte{'b', 0}
	body = append(body, 0, 0, 0, 0)
	body = append(body, contents...)
	return append(newFormatHeader(TagLiteralData, len(body)), body...)
}

func TestReadLiteralNewFormat(t *testing.T) {
	contents := []byte("hello packet reader")
	reader := NewReader(bytes.NewReader(literalPacket(t, contents)))
	p, err := reader.Next()
	if err != nil {
		t.Fatal("Expected no error while reading literal packet, got:", err)
	}
	literal, ok := p.(*LiteralData)
	if !ok {
		t.Fatalf("Expected a literal data packet, got %T", p)
	}
	assert.Exactly(t, contents, literal.Contents)
	assert.True(t, literal.IsBinary())

	_, err = reader.Next()
	assert.Exactly(t, io.EOF, err)
}

func TestReadLiteralOldFormat(t *testing.T) {
	contents := []byte("old format body")
	body := []byte{'t', 0, 0, 0, 0, 0}
	body = append(body, contents...)
	// Old format, tag 11, one-octet length.
	message := append([]byte{0x80 | byte(TagLiteralData)<<2, byte(len(body))}, body...)

	p, err := NewReader(bytes.NewReader(message)).Next()
	if err != nil {
		t.Fatal("Expected no error while reading literal packet, got:", err)
	}
	literal := p.(*LiteralData)
	assert.Exactly(t, contents, literal.Contents)
	assert.False(t, literal.IsBinary())
}

func TestReadPartialLengths(t *testing.T) {
	contents := make([]byte, 512+37)
	for i := range contents {
		contents[i] = byte(i)
	}
	body := []byte{'b', 0, 0, 0, 0, 0}
	body = append(body, contents...)

	// First chunk of 512 bytes (partial), then the definite remainder.
	var message bytes.Buffer
	message.WriteByte(0xc0 | byte(TagLiteralData))
	message.WriteByte(0xe0 | 9) // 2^9 = 512
	message.Write(body[:512])
	rest := body[512:]
	message.WriteByte(byte(len(rest)))
	message.Write(rest)

	p, err := NewReader(&message).Next()
	if err != nil {
		t.Fatal("Expected no error while reading partial length packet, got:", err)
	}
	assert.Exactly(t, contents, p.(*LiteralData).Contents)
}

func TestDeclaredLengthExceedsInput(t *testing.T) {
	// Header declares 100 bytes, only 3 present.
	message := append(newFormatHeader(TagLiteralData, 100), 'b', 0, 0)
	_, err := NewReader(bytes.NewReader(message)).Next()
	assert.Error(t, err)
	var malformed pgperrors.MalformedPacketError
	assert.ErrorAs(t, err, &malformed)
}

func TestMissingMarkerBit(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte{0x11, 0x00})).Next()
	var malformed pgperrors.MalformedPacketError
	assert.ErrorAs(t, err, &malformed)
}

func TestUnknownTagParsesOpaque(t *testing.T) {
	body := []byte("experimental payload")
	message := append(newFormatHeader(Tag(60), len(body)), body...)
	p, err := NewReader(bytes.NewReader(message)).Next()
	if err != nil {
		t.Fatal("Expected no error while reading experimental packet, got:", err)
	}
	opaque, ok := p.(*OpaquePacket)
	if !ok {
		t.Fatalf("Expected an opaque packet, got %T", p)
	}
	assert.Exactly(t, Tag(60), opaque.Tag)
	assert.Exactly(t, body, opaque.Body)
}

func TestRestartFromStart(t *testing.T) {
	message := literalPacket(t, []byte("restartable"))
	for i := 0; i < 2; i++ {
		p, err := NewReader(bytes.NewReader(message)).Next()
		if err != nil {
			t.Fatal("Expected no error on pass", i, "got:", err)
		}
		assert.Exactly(t, []byte("restartable"), p.(*LiteralData).Contents)
	}
}

func TestTruncatedLiteralBody(t *testing.T) {
	body := []byte{'b', 5} // declares a 5 byte file name but ends
	message := append(newFormatHeader(TagLiteralData, len(body)), body...)
	_, err := NewReader(bytes.NewReader(message)).Next()
	var malformed pgperrors.MalformedPacketError
	assert.ErrorAs(t, err, &malformed)
}
