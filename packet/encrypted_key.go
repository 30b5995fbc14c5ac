package packet

import (
	"bytes"
	"crypto/rsa"
	"encoding/binary"
	"math/big"

	"golang.org/x/crypto/curve25519"

	"github.com/pgpcore/pgpcore/pgperrors"
)

// EncryptedKey is a parsed public-key encrypted session key packet.
type EncryptedKey struct {
	KeyID       uint64
	Algo        PublicKeyAlgorithm
	RSACipher   []byte
	ElGamalC1   *big.Int
	ElGamalC2   *big.Int
	ECDHPoint   []byte
	ECDHWrapped []byte
}

func (ek *EncryptedKey) PacketTag() Tag { return TagEncryptedKey }

func parseEncryptedKey(body []byte) (*EncryptedKey, error) {
	r := bytes.NewReader(body)
	var fixed [10]byte
	if _, err := readFullReader(r, fixed[:]); err != nil {
		return nil, err
	}
	if fixed[0] != 3 {
		return nil, pgperrors.UnsupportedError{Feature: "encrypted session key packet version"}
	}
	ek := &EncryptedKey{
		KeyID: binary.BigEndian.Uint64(fixed[1:9]),
		Algo:  PublicKeyAlgorithm(fixed[9]),
	}
	var err error
	switch ek.Algo {
	case PubKeyAlgoRSA, PubKeyAlgoRSAEncryptOnly:
		ek.RSACipher, err = readMPI(r)
		if err != nil {
			return nil, err
		}
	case PubKeyAlgoElGamal:
		if ek.ElGamalC1, err = readMPIBig(r); err != nil {
			return nil, err
		}
		if ek.ElGamalC2, err = readMPIBig(r); err != nil {
			return nil, err
		}
	case PubKeyAlgoECDH:
		point, err := readMPI(r)
		if err != nil {
			return nil, err
		}
		if len(point) != 33 || point[0] != 0x40 {
			return nil, pgperrors.MalformedPacketError{Reason: "invalid ECDH ephemeral point encoding"}
		}
		ek.ECDHPoint = point[1:]
		wrappedLen, err := r.ReadByte()
		if err != nil {
			return nil, pgperrors.MalformedPacketError{Reason: "truncated ECDH session key"}
		}
		ek.ECDHWrapped = make([]byte, wrappedLen)
		if _, err := readFullReader(r, ek.ECDHWrapped); err != nil {
			return nil, err
		}
	default:
		return nil, pgperrors.UnsupportedError{Feature: "session key encryption algorithm"}
	}
	return ek, nil
}

// Decrypt unwraps the session key with the unlocked private key. The
// returned cipher function and key bytes are validated against the embedded
// two-octet checksum; a mismatch means the wrong private key was supplied
// (or the packet is corrupted) and surfaces as SessionKeyError.
func (ek *EncryptedKey) Decrypt(priv *PrivateKey) (CipherFunction, []byte, error) {
	if priv.Encrypted {
		return 0, nil, pgperrors.SessionKeyError{Reason: "private key is locked"}
	}
	var block []byte
	var err error
	switch ek.Algo {
	case PubKeyAlgoRSA, PubKeyAlgoRSAEncryptOnly:
		if priv.RSAPrivate == nil {
			return 0, nil, pgperrors.SessionKeyError{Reason: "key packet algorithm does not match the private key"}
		}
		block, err = rsa.DecryptPKCS1v15(nil, priv.RSAPrivate, leftPad(ek.RSACipher, priv.RSAPrivate.Size()))
		if err != nil {
			return 0, nil, pgperrors.SessionKeyError{Reason: "asymmetric decryption failed"}
		}
	case PubKeyAlgoElGamal:
		if priv.ElGamalX == nil {
			return 0, nil, pgperrors.SessionKeyError{Reason: "key packet algorithm does not match the private key"}
		}
		block, err = elgamalDecrypt(priv.PublicKey.ElGamal, priv.ElGamalX, ek.ElGamalC1, ek.ElGamalC2)
		if err != nil {
			return 0, nil, err
		}
	case PubKeyAlgoECDH:
		if priv.X25519Secret == nil {
			return 0, nil, pgperrors.SessionKeyError{Reason: "key packet algorithm does not match the private key"}
		}
		block, err = ek.decryptECDH(priv)
		if err != nil {
			return 0, nil, err
		}
	default:
		return 0, nil, pgperrors.UnsupportedError{Feature: "session key encryption algorithm"}
	}
	return splitSessionKeyBlock(block)
}

// splitSessionKeyBlock splits algo || key || checksum and validates the
// checksum, the two-octet sum of the key bytes.
func splitSessionKeyBlock(block []byte) (CipherFunction, []byte, error) {
	if len(block) < 4 {
		return 0, nil, pgperrors.SessionKeyError{Reason: "decrypted session key block too short"}
	}
	cipherFunc := CipherFunction(block[0])
	key := block[1 : len(block)-2]
	var sum uint16
	for _, b := range key {
		sum += uint16(b)
	}
	expected := uint16(block[len(block)-2])<<8 | uint16(block[len(block)-1])
	if sum != expected {
		return 0, nil, pgperrors.SessionKeyError{Reason: "session key checksum mismatch"}
	}
	if cipherFunc.KeySize() != len(key) {
		return 0, nil, pgperrors.SessionKeyError{Reason: "session key size does not match its cipher"}
	}
	out := make([]byte, len(key))
	copy(out, key)
	return cipherFunc, out, nil
}

// elgamalDecrypt computes c2 * (c1^x)^-1 mod p and strips the EME-PKCS1
// type 2 padding.
func elgamalDecrypt(pub *ElGamalPublicKey, x, c1, c2 *big.Int) ([]byte, error) {
	s := new(big.Int).Exp(c1, x, pub.P)
	if s.ModInverse(s, pub.P) == nil {
		return nil, pgperrors.SessionKeyError{Reason: "ElGamal decryption failed"}
	}
	m := new(big.Int).Mod(new(big.Int).Mul(c2, s), pub.P).Bytes()
	// The leading 0x00 of the padded block is dropped by big.Int.
	if len(m) < 10 || m[0] != 2 {
		return nil, pgperrors.SessionKeyError{Reason: "invalid session key padding"}
	}
	split := bytes.IndexByte(m[1:], 0)
	if split < 0 {
		return nil, pgperrors.SessionKeyError{Reason: "invalid session key padding"}
	}
	return m[split+2:], nil
}

// decryptECDH recovers the key-encryption key per RFC 6637 and unwraps the
// session key block with AES key wrap.
func (ek *EncryptedKey) decryptECDH(priv *PrivateKey) ([]byte, error) {
	kdf := priv.PublicKey.ECDH.KDF
	shared, err := curve25519.X25519(priv.X25519Secret, ek.ECDHPoint)
	if err != nil {
		return nil, pgperrors.SessionKeyError{Reason: "X25519 shared secret computation failed"}
	}
	defer wipeBytes(shared)

	// One-pass KDF: H(0x00000001 || S || params).
	h := kdf.Hash.New()
	h.Write([]byte{0, 0, 0, 1})
	h.Write(shared)
	h.Write(ecdhKDFParams(&priv.PublicKey))
	kek := h.Sum(nil)[:kdf.Cipher.KeySize()]
	defer wipeBytes(kek)

	block, err := keyUnwrap(kek, ek.ECDHWrapped)
	if err != nil {
		return nil, err
	}
	// Strip the trailing PKCS#5 style padding.
	if len(block) == 0 {
		return nil, pgperrors.SessionKeyError{Reason: "empty unwrapped session key block"}
	}
	pad := int(block[len(block)-1])
	if pad == 0 || pad > len(block) {
		return nil, pgperrors.SessionKeyError{Reason: "invalid session key padding"}
	}
	return block[:len(block)-pad], nil
}

// ecdhKDFParams builds the KDF parameter block hashed alongside the shared
// secret: curve OID, algorithm ID, KDF parameters, the fixed sender string
// and the recipient fingerprint.
func ecdhKDFParams(pk *PublicKey) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(len(pk.ECDH.CurveOID)))
	buf.Write(pk.ECDH.CurveOID)
	buf.WriteByte(byte(PubKeyAlgoECDH))
	buf.Write([]byte{3, 1, pk.ECDH.KDF.HashID, pk.ECDH.KDF.CipherID})
	buf.WriteString("Anonymous Sender    ")
	buf.Write(pk.Fingerprint[:20])
	return buf.Bytes()
}
