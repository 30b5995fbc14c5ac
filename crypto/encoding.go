package crypto

import (
	"io"

	"github.com/pgpcore/pgpcore/armor"
)

// PGPEncoding indicates how a pgp message input is encoded.
type PGPEncoding int8

const (
	// Armor treats the input as ASCII armored.
	Armor PGPEncoding = 0
	// Bytes treats the input as binary.
	Bytes PGPEncoding = 1
	// Auto detects armoring automatically.
	Auto PGPEncoding = 2
)

func (e PGPEncoding) unarmorInput(input io.Reader) (reader io.Reader, unarmor bool) {
	reader = input
	switch e {
	case Armor:
		unarmor = true
	case Auto:
		reader, unarmor = armor.IsPGPArmored(input)
	}
	return
}
