package packet

import (
	"bytes"
	"crypto"
	"encoding/binary"
	"math/big"
	"time"

	"github.com/pgpcore/pgpcore/pgperrors"
)

// SignatureType identifies what a signature covers.
type SignatureType uint8

const (
	SigTypeBinary           SignatureType = 0x00
	SigTypeText             SignatureType = 0x01
	SigTypeGenericCert      SignatureType = 0x10
	SigTypePersonaCert      SignatureType = 0x11
	SigTypeCasualCert       SignatureType = 0x12
	SigTypePositiveCert     SignatureType = 0x13
	SigTypeSubkeyBinding    SignatureType = 0x18
	SigTypeDirect           SignatureType = 0x1f
	SigTypeKeyRevocation    SignatureType = 0x20
	SigTypeSubkeyRevocation SignatureType = 0x28
)

// KeyFlags are the capability bits of the key flags subpacket.
type KeyFlags struct {
	Valid                 bool
	Certify               bool
	Sign                  bool
	EncryptCommunications bool
	EncryptStorage        bool
}

// CanEncrypt reports whether either encryption capability bit is set.
func (kf KeyFlags) CanEncrypt() bool {
	return kf.EncryptCommunications || kf.EncryptStorage
}

// Signature is a parsed version 4 signature packet.
type Signature struct {
	SigType    SignatureType
	PubKeyAlgo PublicKeyAlgorithm
	HashID     byte
	Hash       crypto.Hash

	CreationTime      time.Time
	IssuerKeyID       uint64
	IssuerFingerprint []byte
	KeyFlags          KeyFlags
	SigLifetimeSecs   uint32
	KeyLifetimeSecs   uint32

	// hashedSection is the signature body from the version octet through
	// the hashed subpackets; signature digests cover it verbatim.
	hashedSection []byte
	left16        [2]byte

	RSASignature []byte
	ECDSASigR    *big.Int
	ECDSASigS    *big.Int
	EdDSASigR    []byte
	EdDSASigS    []byte
}

func (sig *Signature) PacketTag() Tag { return TagSignature }

func parseSignature(body []byte) (*Signature, error) {
	if len(body) < 6 {
		return nil, pgperrors.MalformedPacketError{Reason: "truncated signature packet"}
	}
	if body[0] != 4 {
		return nil, pgperrors.UnsupportedError{Feature: "signature packet version"}
	}
	sig := &Signature{
		SigType:    SignatureType(body[1]),
		PubKeyAlgo: PublicKeyAlgorithm(body[2]),
		HashID:     body[3],
	}
	var err error
	if sig.Hash, err = HashIDToHash(body[3]); err != nil {
		return nil, err
	}
	hashedLen := int(body[4])<<8 | int(body[5])
	if len(body) < 6+hashedLen+2 {
		return nil, pgperrors.MalformedPacketError{Reason: "hashed subpackets exceed signature body"}
	}
	sig.hashedSection = body[:6+hashedLen]
	if err := sig.parseSubpackets(body[6:6+hashedLen], true); err != nil {
		return nil, err
	}

	rest := body[6+hashedLen:]
	unhashedLen := int(rest[0])<<8 | int(rest[1])
	if len(rest) < 2+unhashedLen+2 {
		return nil, pgperrors.MalformedPacketError{Reason: "unhashed subpackets exceed signature body"}
	}
	if err := sig.parseSubpackets(rest[2:2+unhashedLen], false); err != nil {
		return nil, err
	}
	rest = rest[2+unhashedLen:]
	copy(sig.left16[:], rest[:2])

	r := bytes.NewReader(rest[2:])
	switch sig.PubKeyAlgo {
	case PubKeyAlgoRSA, PubKeyAlgoRSASignOnly:
		if sig.RSASignature, err = readMPI(r); err != nil {
			return nil, err
		}
	case PubKeyAlgoECDSA:
		if sig.ECDSASigR, err = readMPIBig(r); err != nil {
			return nil, err
		}
		if sig.ECDSASigS, err = readMPIBig(r); err != nil {
			return nil, err
		}
	case PubKeyAlgoEdDSA:
		if sig.EdDSASigR, err = readMPI(r); err != nil {
			return nil, err
		}
		if sig.EdDSASigS, err = readMPI(r); err != nil {
			return nil, err
		}
	default:
		// Leave the values opaque; verification reports the algorithm as
		// unsupported. Key blocks may legitimately carry such signatures.
	}
	return sig, nil
}

func (sig *Signature) parseSubpackets(data []byte, hashed bool) error {
	for len(data) > 0 {
		var length int
		switch {
		case data[0] < 192:
			length = int(data[0])
			data = data[1:]
		case data[0] < 255:
			if len(data) < 2 {
				return pgperrors.MalformedPacketError{Reason: "truncated subpacket length"}
			}
			length = (int(data[0])-192)<<8 + int(data[1]) + 192
			data = data[2:]
		default:
			if len(data) < 5 {
				return pgperrors.MalformedPacketError{Reason: "truncated subpacket length"}
			}
			length = int(binary.BigEndian.Uint32(data[1:5]))
			data = data[5:]
		}
		if length == 0 || length > len(data) {
			return pgperrors.MalformedPacketError{Reason: "subpacket length exceeds signature body"}
		}
		body := data[1:length]
		subType := data[0] & 0x7f
		data = data[length:]

		switch subType {
		case 2: // signature creation time
			if hashed && len(body) == 4 {
				sig.CreationTime = time.Unix(int64(binary.BigEndian.Uint32(body)), 0)
			}
		case 3: // signature expiration
			if hashed && len(body) == 4 {
				sig.SigLifetimeSecs = binary.BigEndian.Uint32(body)
			}
		case 9: // key expiration
			if hashed && len(body) == 4 {
				sig.KeyLifetimeSecs = binary.BigEndian.Uint32(body)
			}
		case 16: // issuer key ID
			if len(body) == 8 && sig.IssuerKeyID == 0 {
				sig.IssuerKeyID = binary.BigEndian.Uint64(body)
			}
		case 27: // key flags
			if hashed && len(body) >= 1 {
				sig.KeyFlags = KeyFlags{
					Valid:                 true,
					Certify:               body[0]&0x01 != 0,
					Sign:                  body[0]&0x02 != 0,
					EncryptCommunications: body[0]&0x04 != 0,
					EncryptStorage:        body[0]&0x08 != 0,
				}
			}
		case 33: // issuer fingerprint
			if len(body) == 21 && body[0] == 4 {
				sig.IssuerFingerprint = body[1:]
				if sig.IssuerKeyID == 0 {
					sig.IssuerKeyID = binary.BigEndian.Uint64(body[len(body)-8:])
				}
			}
		}
	}
	return nil
}

// ComputeDigest hashes the message the way the signature declares: raw
// bytes for binary signatures, CRLF-canonicalized for text signatures,
// followed by the hashed section and the v4 trailer.
func (sig *Signature) ComputeDigest(message []byte) ([]byte, error) {
	if !sig.Hash.Available() {
		return nil, pgperrors.UnsupportedError{Feature: "signature hash algorithm"}
	}
	h := sig.Hash.New()
	if sig.SigType == SigTypeText {
		h.Write(canonicalizeText(message))
	} else {
		h.Write(message)
	}
	h.Write(sig.hashedSection)
	var trailer [6]byte
	trailer[0] = 4
	trailer[1] = 0xff
	binary.BigEndian.PutUint32(trailer[2:], uint32(len(sig.hashedSection)))
	h.Write(trailer[:])
	return h.Sum(nil), nil
}

// Verify checks the signature over message against the given public key.
func (sig *Signature) Verify(message []byte, pk *PublicKey) error {
	digest, err := sig.ComputeDigest(message)
	if err != nil {
		return err
	}
	return pk.VerifyDigest(sig.Hash, digest, sig)
}

// canonicalizeText converts line endings to CRLF, the form text signatures
// are computed over.
func canonicalizeText(text []byte) []byte {
	var out bytes.Buffer
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\r':
			out.WriteString("\r\n")
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
		case '\n':
			out.WriteString("\r\n")
		default:
			out.WriteByte(text[i])
		}
	}
	return out.Bytes()
}
