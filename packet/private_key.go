package packet

import (
	"bytes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/subtle"
	"math/big"

	"github.com/pgpcore/pgpcore/pgperrors"
)

// S2K usage octets of a secret key packet.
const (
	s2kUsagePlaintext = 0
	s2kUsageAEAD      = 253
	s2kUsageSHA1      = 254
	s2kUsageChecksum  = 255
)

// PrivateKey is a parsed secret key or secret subkey packet. The secret
// parameters stay opaque ciphertext until Unlock succeeds; callers must
// check Encrypted before touching the material fields.
type PrivateKey struct {
	PublicKey

	Encrypted bool

	// Encrypted form, retained until unlocked.
	cipherFunc    CipherFunction
	s2kParams     *s2k
	iv            []byte
	encryptedData []byte
	sha1Checksum  bool

	// Unlocked secret material, exactly one set matching Algo.
	RSAPrivate   *rsa.PrivateKey
	ElGamalX     *big.Int
	Ed25519Seed  []byte
	X25519Secret []byte
}

func (sk *PrivateKey) PacketTag() Tag { return sk.Tag }

func parseSecretKey(tag Tag, body []byte) (*PrivateKey, error) {
	r := bytes.NewReader(body)
	pub, err := parsePublicKeyBody(tag, r)
	if err != nil {
		return nil, err
	}
	// The fingerprint covers only the public portion of the packet.
	publicLen := len(body) - r.Len()
	pub.setFingerprint(body[:publicLen])
	sk := &PrivateKey{PublicKey: *pub}

	usage, err := r.ReadByte()
	if err != nil {
		return nil, pgperrors.MalformedPacketError{Reason: "truncated secret key packet"}
	}
	switch usage {
	case s2kUsagePlaintext:
		rest := make([]byte, r.Len())
		_, _ = r.Read(rest)
		if err := sk.parseSecretMaterial(rest, false); err != nil {
			return nil, err
		}
		return sk, nil
	case s2kUsageSHA1, s2kUsageChecksum:
		cipherID, err := r.ReadByte()
		if err != nil {
			return nil, pgperrors.MalformedPacketError{Reason: "truncated secret key packet"}
		}
		sk.cipherFunc = CipherFunction(cipherID)
		if sk.cipherFunc.KeySize() == 0 {
			return nil, pgperrors.UnsupportedError{Feature: "secret key protection cipher"}
		}
		sk.s2kParams, err = parseS2K(r)
		if err != nil {
			return nil, err
		}
		sk.iv = make([]byte, sk.cipherFunc.BlockSize())
		if _, err := readFullReader(r, sk.iv); err != nil {
			return nil, err
		}
		sk.encryptedData = make([]byte, r.Len())
		_, _ = r.Read(sk.encryptedData)
		sk.sha1Checksum = usage == s2kUsageSHA1
		sk.Encrypted = true
		return sk, nil
	case s2kUsageAEAD:
		return nil, pgperrors.UnsupportedError{Feature: "AEAD protected secret keys"}
	default:
		return nil, pgperrors.MalformedPacketError{Reason: "unknown S2K usage octet"}
	}
}

// Unlock decrypts the secret parameters with a key derived from the
// passphrase. A checksum mismatch over the decrypted block surfaces as
// PassphraseError. The key is unlocked in place and at most once; callers
// must Wipe it when the operation finishes.
func (sk *PrivateKey) Unlock(passphrase []byte) error {
	if !sk.Encrypted {
		return nil
	}
	key := sk.s2kParams.deriveKey(passphrase, sk.cipherFunc.KeySize())
	defer wipeBytes(key)
	block, err := sk.cipherFunc.new(key)
	if err != nil {
		return err
	}
	data := make([]byte, len(sk.encryptedData))
	cipher.NewCFBDecrypter(block, sk.iv).XORKeyStream(data, sk.encryptedData)
	defer wipeBytes(data)

	if sk.sha1Checksum {
		if len(data) < sha1.Size {
			return pgperrors.PassphraseError{KeyID: sk.KeyID}
		}
		split := len(data) - sha1.Size
		digest := sha1.Sum(data[:split])
		if subtle.ConstantTimeCompare(digest[:], data[split:]) != 1 {
			return pgperrors.PassphraseError{KeyID: sk.KeyID}
		}
		data = data[:split]
	} else {
		if len(data) < 2 {
			return pgperrors.PassphraseError{KeyID: sk.KeyID}
		}
		split := len(data) - 2
		var sum uint16
		for _, b := range data[:split] {
			sum += uint16(b)
		}
		if sum != uint16(data[split])<<8|uint16(data[split+1]) {
			return pgperrors.PassphraseError{KeyID: sk.KeyID}
		}
		data = data[:split]
	}

	if err := sk.parseSecretMaterial(data, true); err != nil {
		return err
	}
	sk.Encrypted = false
	return nil
}

// parseSecretMaterial parses the decrypted (or plaintext) secret MPIs. For
// plaintext keys the trailing two-octet checksum is verified as a parse
// error rather than a passphrase error.
func (sk *PrivateKey) parseSecretMaterial(data []byte, checksummed bool) error {
	if !checksummed {
		if len(data) < 2 {
			return pgperrors.MalformedPacketError{Reason: "truncated secret key material"}
		}
		split := len(data) - 2
		var sum uint16
		for _, b := range data[:split] {
			sum += uint16(b)
		}
		if sum != uint16(data[split])<<8|uint16(data[split+1]) {
			return pgperrors.KeyParseError{Reason: "secret key material checksum mismatch"}
		}
		data = data[:split]
	}
	r := bytes.NewReader(data)
	switch sk.Algo {
	case PubKeyAlgoRSA, PubKeyAlgoRSAEncryptOnly, PubKeyAlgoRSASignOnly:
		return sk.parseRSASecret(r)
	case PubKeyAlgoElGamal:
		x, err := readMPIBig(r)
		if err != nil {
			return err
		}
		sk.ElGamalX = x
		return nil
	case PubKeyAlgoEdDSA:
		seed, err := readMPI(r)
		if err != nil {
			return err
		}
		sk.Ed25519Seed = leftPad(seed, ed25519.SeedSize)
		return nil
	case PubKeyAlgoECDH:
		d, err := readMPI(r)
		if err != nil {
			return err
		}
		// The scalar is stored as a big-endian MPI; X25519 wants it
		// little-endian.
		sk.X25519Secret = reverse(leftPad(d, 32))
		return nil
	}
	return pgperrors.UnsupportedError{Feature: "secret key algorithm"}
}

func (sk *PrivateKey) parseRSASecret(r *bytes.Reader) error {
	d, err := readMPIBig(r)
	if err != nil {
		return err
	}
	p, err := readMPIBig(r)
	if err != nil {
		return err
	}
	q, err := readMPIBig(r)
	if err != nil {
		return err
	}
	// The fourth MPI (u = p^-1 mod q) is recomputed by Precompute.
	if _, err := readMPIBig(r); err != nil {
		return err
	}
	priv := &rsa.PrivateKey{
		PublicKey: *sk.RSA,
		D:         d,
		Primes:    []*big.Int{p, q},
	}
	if err := priv.Validate(); err != nil {
		return pgperrors.KeyParseError{Reason: "RSA secret parameters are inconsistent"}
	}
	priv.Precompute()
	sk.RSAPrivate = priv
	return nil
}

// Wipe clears the unlocked secret material. The key reverts to unusable;
// parsing from the original bytes is required to use it again.
func (sk *PrivateKey) Wipe() {
	if sk.RSAPrivate != nil {
		wipeBigInt(sk.RSAPrivate.D)
		for _, prime := range sk.RSAPrivate.Primes {
			wipeBigInt(prime)
		}
		wipeBigInt(sk.RSAPrivate.Precomputed.Dp)
		wipeBigInt(sk.RSAPrivate.Precomputed.Dq)
		wipeBigInt(sk.RSAPrivate.Precomputed.Qinv)
		sk.RSAPrivate = nil
	}
	if sk.ElGamalX != nil {
		wipeBigInt(sk.ElGamalX)
		sk.ElGamalX = nil
	}
	wipeBytes(sk.Ed25519Seed)
	sk.Ed25519Seed = nil
	wipeBytes(sk.X25519Secret)
	sk.X25519Secret = nil
}

func wipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func wipeBigInt(n *big.Int) {
	if n == nil {
		return
	}
	w := n.Bits()
	for i := range w {
		w[i] = 0
	}
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
