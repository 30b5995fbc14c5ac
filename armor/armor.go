// Package armor contains a set of helper methods for armoring and
// unarmoring data.
package armor

import (
	"bufio"
	"bytes"
	"io"

	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/pkg/errors"

	"github.com/pgpcore/pgpcore/constants"
)

// ArmorHeaders is the set of armor headers written by this library.
var ArmorHeaders = map[string]string{
	"Version": constants.ArmorHeaderVersion,
}

// ArmorKey armors input as a public key block.
func ArmorKey(input []byte) (string, error) {
	return ArmorWithType(input, constants.PublicKeyHeader)
}

// ArmorWithType armors input with the given armorType.
func ArmorWithType(input []byte, armorType string) (string, error) {
	var b bytes.Buffer
	w, err := armor.Encode(&b, armorType, ArmorHeaders)
	if err != nil {
		return "", errors.Wrap(err, "pgpcore: unable to encode armoring")
	}
	if _, err = w.Write(input); err != nil {
		return "", errors.Wrap(err, "pgpcore: unable to write armored to buffer")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "pgpcore: unable to close armor buffer")
	}
	return b.String(), nil
}

// Unarmor unarmors an armored string into a byte array.
func Unarmor(input string) ([]byte, error) {
	block, err := armor.Decode(bytes.NewReader([]byte(input)))
	if err != nil {
		return nil, errors.Wrap(err, "pgpcore: unable to unarmor")
	}
	return io.ReadAll(block.Body)
}

// UnarmorReader returns a reader of the unarmored body of in.
func UnarmorReader(in io.Reader) (io.Reader, error) {
	block, err := armor.Decode(in)
	if err != nil {
		return nil, errors.Wrap(err, "pgpcore: unable to unarmor")
	}
	return block.Body, nil
}

const armorPrefix = "-----BEGIN PGP"

// IsPGPArmored reads a prefix of in to detect armoring and returns a reader
// with the prefix restored, plus whether the input looks armored.
func IsPGPArmored(in io.Reader) (io.Reader, bool) {
	buffered := bufio.NewReader(in)
	peeked, _ := buffered.Peek(len(armorPrefix))
	return buffered, bytes.HasPrefix(peeked, []byte(armorPrefix))
}
