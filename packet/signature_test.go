package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeText(t *testing.T) {
	cases := []struct {
		in, out string
	}{
		{"no line ending", "no line ending"},
		{"unix\nending\n", "unix\r\nending\r\n"},
		{"dos\r\nending\r\n", "dos\r\nending\r\n"},
		{"mac\rending\r", "mac\r\nending\r\n"},
		{"mixed\r\nup\rline\nends", "mixed\r\nup\r\nline\r\nends"},
		{"\r\r\n\n", "\r\n\r\n\r\n"},
	}
	for _, c := range cases {
		assert.Exactly(t, []byte(c.out), canonicalizeText([]byte(c.in)), "input %q", c.in)
	}
}
