package packet

import (
	"bytes"
	"math/big"

	"github.com/pgpcore/pgpcore/pgperrors"
)

// readMPI reads a multiprecision integer: a two-octet bit count followed by
// the big-endian magnitude. The raw bytes are returned without the length
// prefix.
func readMPI(r *bytes.Reader) ([]byte, error) {
	var hdr [2]byte
	if _, err := r.Read(hdr[:1]); err != nil {
		return nil, pgperrors.MalformedPacketError{Reason: "truncated MPI"}
	}
	if _, err := r.Read(hdr[1:]); err != nil {
		return nil, pgperrors.MalformedPacketError{Reason: "truncated MPI"}
	}
	bitLength := int(hdr[0])<<8 | int(hdr[1])
	byteLength := (bitLength + 7) / 8
	mpi := make([]byte, byteLength)
	if _, err := readFullReader(r, mpi); err != nil {
		return nil, pgperrors.MalformedPacketError{Reason: "MPI shorter than declared bit length"}
	}
	return mpi, nil
}

// readMPIBig reads an MPI into a big.Int.
func readMPIBig(r *bytes.Reader) (*big.Int, error) {
	mpi, err := readMPI(r)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(mpi), nil
}

func readFullReader(r *bytes.Reader, buf []byte) (int, error) {
	n, err := r.Read(buf)
	if err != nil || n != len(buf) {
		return n, pgperrors.MalformedPacketError{Reason: "truncated field"}
	}
	return n, nil
}

// leftPad returns b left-padded with zeros to size bytes. MPIs strip leading
// zero octets, so fixed-width fields such as EdDSA scalars must be restored.
func leftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	padded := make([]byte, size)
	copy(padded[size-len(b):], b)
	return padded
}
