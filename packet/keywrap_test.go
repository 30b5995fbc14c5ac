package packet

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pgpcore/pgpcore/pgperrors"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// Test vectors from RFC 3394 section 4.
func TestKeyUnwrap(t *testing.T) {
	tests := []struct {
		name    string
		kek     string
		wrapped string
		want    string
	}{
		{
			name:    "128-bit data with 128-bit KEK",
			kek:     "000102030405060708090A0B0C0D0E0F",
			wrapped: "1FA68B0A8112B447AEF34BD8FB5A7B829D3E862371D2CFE5",
			want:    "00112233445566778899AABBCCDDEEFF",
		},
		{
			name:    "128-bit data with 256-bit KEK",
			kek:     "000102030405060708090A0B0C0D0E0F101112131415161718191A1B1C1D1E1F",
			wrapped: "64E8C3F9CE0F5BA263E9777905818A2A93C8191E7D6E8AE7",
			want:    "00112233445566778899AABBCCDDEEFF",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := keyUnwrap(mustHex(t, tt.kek), mustHex(t, tt.wrapped))
			if err != nil {
				t.Fatal("Expected no error while unwrapping, got:", err)
			}
			assert.Exactly(t, mustHex(t, tt.want), got)
		})
	}
}

func TestKeyUnwrapRejectsTampering(t *testing.T) {
	kek := mustHex(t, "000102030405060708090A0B0C0D0E0F")
	wrapped := mustHex(t, "1FA68B0A8112B447AEF34BD8FB5A7B829D3E862371D2CFE5")
	wrapped[5] ^= 0x01
	_, err := keyUnwrap(kek, wrapped)
	var skErr pgperrors.SessionKeyError
	assert.ErrorAs(t, err, &skErr)
}

func TestKeyUnwrapRejectsBadLength(t *testing.T) {
	kek := mustHex(t, "000102030405060708090A0B0C0D0E0F")
	for _, wrapped := range [][]byte{nil, make([]byte, 8), make([]byte, 23)} {
		_, err := keyUnwrap(kek, wrapped)
		var skErr pgperrors.SessionKeyError
		assert.ErrorAs(t, err, &skErr)
	}
}
