package packet

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/binary"
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/pgpcore/pgpcore/pgperrors"
)

// PublicKeyAlgorithm identifies an OpenPGP public key algorithm.
type PublicKeyAlgorithm uint8

const (
	PubKeyAlgoRSA            PublicKeyAlgorithm = 1
	PubKeyAlgoRSAEncryptOnly PublicKeyAlgorithm = 2
	PubKeyAlgoRSASignOnly    PublicKeyAlgorithm = 3
	PubKeyAlgoElGamal        PublicKeyAlgorithm = 16
	PubKeyAlgoDSA            PublicKeyAlgorithm = 17
	PubKeyAlgoECDH           PublicKeyAlgorithm = 18
	PubKeyAlgoECDSA          PublicKeyAlgorithm = 19
	PubKeyAlgoEdDSA          PublicKeyAlgorithm = 22
)

// CanEncrypt reports whether the algorithm can encrypt session keys.
func (a PublicKeyAlgorithm) CanEncrypt() bool {
	switch a {
	case PubKeyAlgoRSA, PubKeyAlgoRSAEncryptOnly, PubKeyAlgoElGamal, PubKeyAlgoECDH:
		return true
	}
	return false
}

// CanSign reports whether the algorithm can produce signatures.
func (a PublicKeyAlgorithm) CanSign() bool {
	switch a {
	case PubKeyAlgoRSA, PubKeyAlgoRSASignOnly, PubKeyAlgoDSA, PubKeyAlgoECDSA, PubKeyAlgoEdDSA:
		return true
	}
	return false
}

var (
	oidCurve25519 = []byte{0x2b, 0x06, 0x01, 0x04, 0x01, 0x97, 0x55, 0x01, 0x05, 0x01}
	oidEd25519    = []byte{0x2b, 0x06, 0x01, 0x04, 0x01, 0xda, 0x47, 0x0f, 0x01}
	oidNistP256   = []byte{0x2a, 0x86, 0x48, 0xce, 0x3d, 0x03, 0x01, 0x07}
	oidNistP384   = []byte{0x2b, 0x81, 0x04, 0x00, 0x22}
	oidNistP521   = []byte{0x2b, 0x81, 0x04, 0x00, 0x23}
)

// ecdhKDF holds the KDF parameters an ECDH key carries for session key
// wrapping, per RFC 6637. The raw identifiers are kept because they are
// hashed into the KDF parameter block verbatim.
type ecdhKDF struct {
	HashID   byte
	Hash     crypto.Hash
	CipherID byte
	Cipher   CipherFunction
}

// PublicKey is a parsed public key or public subkey packet.
type PublicKey struct {
	Tag          Tag
	Version      int
	CreationTime time.Time
	Algo         PublicKeyAlgorithm
	Fingerprint  []byte
	KeyID        uint64

	// Exactly one of the following is set, matching Algo.
	RSA     *rsa.PublicKey
	ECDSA   *ecdsa.PublicKey
	Ed25519 ed25519.PublicKey
	ElGamal *ElGamalPublicKey
	ECDH    *ECDHPublicKey
}

// ElGamalPublicKey holds the group parameters and public value of an
// ElGamal encryption key.
type ElGamalPublicKey struct {
	P, G, Y *big.Int
}

// ECDHPublicKey holds an ECDH public point and its KDF parameters.
// Only Curve25519 is supported.
type ECDHPublicKey struct {
	CurveOID []byte
	// Point is the 32-byte X25519 public value, without the 0x40 prefix.
	Point []byte
	KDF   ecdhKDF
}

func (pk *PublicKey) PacketTag() Tag { return pk.Tag }

// IsSubkey reports whether the packet was a subkey packet.
func (pk *PublicKey) IsSubkey() bool {
	return pk.Tag == TagPublicSubkey || pk.Tag == TagSecretSubkey
}

func parsePublicKey(tag Tag, body []byte) (*PublicKey, error) {
	r := bytes.NewReader(body)
	pk, err := parsePublicKeyBody(tag, r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, pgperrors.MalformedPacketError{Reason: "trailing bytes after public key"}
	}
	pk.setFingerprint(body)
	return pk, nil
}

// parsePublicKeyBody parses the public key fields from r, leaving r
// positioned after them. Secret key packets reuse it for their public
// portion.
func parsePublicKeyBody(tag Tag, r *bytes.Reader) (*PublicKey, error) {
	var fixed [6]byte
	if _, err := readFullReader(r, fixed[:]); err != nil {
		return nil, err
	}
	if fixed[0] != 4 {
		return nil, pgperrors.UnsupportedError{Feature: "public key packet version"}
	}
	pk := &PublicKey{
		Tag:          tag,
		Version:      int(fixed[0]),
		CreationTime: time.Unix(int64(binary.BigEndian.Uint32(fixed[1:5])), 0),
		Algo:         PublicKeyAlgorithm(fixed[5]),
	}
	var err error
	switch pk.Algo {
	case PubKeyAlgoRSA, PubKeyAlgoRSAEncryptOnly, PubKeyAlgoRSASignOnly:
		err = pk.parseRSA(r)
	case PubKeyAlgoElGamal:
		err = pk.parseElGamal(r)
	case PubKeyAlgoECDSA:
		err = pk.parseECDSA(r)
	case PubKeyAlgoEdDSA:
		err = pk.parseEdDSA(r)
	case PubKeyAlgoECDH:
		err = pk.parseECDH(r)
	default:
		err = pgperrors.UnsupportedError{Feature: "public key algorithm"}
	}
	if err != nil {
		return nil, err
	}
	return pk, nil
}

func (pk *PublicKey) parseRSA(r *bytes.Reader) error {
	n, err := readMPIBig(r)
	if err != nil {
		return err
	}
	e, err := readMPIBig(r)
	if err != nil {
		return err
	}
	if !e.IsInt64() || e.Int64() > int64(1)<<31 {
		return pgperrors.MalformedPacketError{Reason: "RSA public exponent out of range"}
	}
	pk.RSA = &rsa.PublicKey{N: n, E: int(e.Int64())}
	return nil
}

func (pk *PublicKey) parseElGamal(r *bytes.Reader) error {
	p, err := readMPIBig(r)
	if err != nil {
		return err
	}
	g, err := readMPIBig(r)
	if err != nil {
		return err
	}
	y, err := readMPIBig(r)
	if err != nil {
		return err
	}
	pk.ElGamal = &ElGamalPublicKey{P: p, G: g, Y: y}
	return nil
}

func readCurveOID(r *bytes.Reader) ([]byte, error) {
	size, err := r.ReadByte()
	if err != nil {
		return nil, pgperrors.MalformedPacketError{Reason: "truncated curve OID"}
	}
	oid := make([]byte, size)
	if _, err := readFullReader(r, oid); err != nil {
		return nil, err
	}
	return oid, nil
}

func (pk *PublicKey) parseECDSA(r *bytes.Reader) error {
	oid, err := readCurveOID(r)
	if err != nil {
		return err
	}
	var curve elliptic.Curve
	switch {
	case bytes.Equal(oid, oidNistP256):
		curve = elliptic.P256()
	case bytes.Equal(oid, oidNistP384):
		curve = elliptic.P384()
	case bytes.Equal(oid, oidNistP521):
		curve = elliptic.P521()
	default:
		return pgperrors.UnsupportedError{Feature: "ECDSA curve"}
	}
	point, err := readMPI(r)
	if err != nil {
		return err
	}
	x, y := elliptic.Unmarshal(curve, point) //nolint:staticcheck
	if x == nil {
		return pgperrors.MalformedPacketError{Reason: "invalid ECDSA point encoding"}
	}
	pk.ECDSA = &ecdsa.PublicKey{Curve: curve, X: x, Y: y}
	return nil
}

func (pk *PublicKey) parseEdDSA(r *bytes.Reader) error {
	oid, err := readCurveOID(r)
	if err != nil {
		return err
	}
	if !bytes.Equal(oid, oidEd25519) {
		return pgperrors.UnsupportedError{Feature: "EdDSA curve"}
	}
	point, err := readMPI(r)
	if err != nil {
		return err
	}
	if len(point) != ed25519.PublicKeySize+1 || point[0] != 0x40 {
		return pgperrors.MalformedPacketError{Reason: "invalid EdDSA point encoding"}
	}
	pk.Ed25519 = ed25519.PublicKey(point[1:])
	return nil
}

func (pk *PublicKey) parseECDH(r *bytes.Reader) error {
	oid, err := readCurveOID(r)
	if err != nil {
		return err
	}
	if !bytes.Equal(oid, oidCurve25519) {
		return pgperrors.UnsupportedError{Feature: "ECDH curve"}
	}
	point, err := readMPI(r)
	if err != nil {
		return err
	}
	if len(point) != 33 || point[0] != 0x40 {
		return pgperrors.MalformedPacketError{Reason: "invalid ECDH point encoding"}
	}
	var kdfHdr [4]byte
	if _, err := readFullReader(r, kdfHdr[:]); err != nil {
		return err
	}
	if kdfHdr[0] != 3 || kdfHdr[1] != 1 {
		return pgperrors.MalformedPacketError{Reason: "invalid ECDH KDF parameter block"}
	}
	kdfHash, err := HashIDToHash(kdfHdr[2])
	if err != nil {
		return err
	}
	pk.ECDH = &ECDHPublicKey{
		CurveOID: oid,
		Point:    point[1:],
		KDF: ecdhKDF{
			HashID:   kdfHdr[2],
			Hash:     kdfHash,
			CipherID: kdfHdr[3],
			Cipher:   CipherFunction(kdfHdr[3]),
		},
	}
	return nil
}

// setFingerprint computes the v4 fingerprint over the serialized public key
// body and derives the 64-bit key ID from its low bytes.
func (pk *PublicKey) setFingerprint(publicBody []byte) {
	h := sha1.New()
	h.Write([]byte{0x99, byte(len(publicBody) >> 8), byte(len(publicBody))})
	h.Write(publicBody)
	pk.Fingerprint = h.Sum(nil)
	pk.KeyID = binary.BigEndian.Uint64(pk.Fingerprint[len(pk.Fingerprint)-8:])
}

// VerifyDigest checks sig against the given message digest.
func (pk *PublicKey) VerifyDigest(hashFunc crypto.Hash, digest []byte, sig *Signature) error {
	if sig.PubKeyAlgo != pk.Algo {
		return errors.New("pgpcore: signature algorithm does not match the key")
	}
	switch pk.Algo {
	case PubKeyAlgoRSA, PubKeyAlgoRSASignOnly:
		if err := rsa.VerifyPKCS1v15(pk.RSA, hashFunc, digest, leftPad(sig.RSASignature, pk.RSA.Size())); err != nil {
			return errors.Wrap(err, "pgpcore: RSA signature check failed")
		}
		return nil
	case PubKeyAlgoECDSA:
		if !ecdsa.Verify(pk.ECDSA, digest, sig.ECDSASigR, sig.ECDSASigS) {
			return errors.New("pgpcore: ECDSA signature check failed")
		}
		return nil
	case PubKeyAlgoEdDSA:
		eddsaSig := make([]byte, 0, ed25519.SignatureSize)
		eddsaSig = append(eddsaSig, leftPad(sig.EdDSASigR, 32)...)
		eddsaSig = append(eddsaSig, leftPad(sig.EdDSASigS, 32)...)
		if !ed25519.Verify(pk.Ed25519, digest, eddsaSig) {
			return errors.New("pgpcore: EdDSA signature check failed")
		}
		return nil
	}
	return pgperrors.UnsupportedError{Feature: "signature algorithm"}
}
