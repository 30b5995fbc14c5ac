package crypto

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/pgpcore/pgpcore/armor"
	"github.com/pgpcore/pgpcore/packet"
	"github.com/pgpcore/pgpcore/pgperrors"
)

// Key contains a single private or public key: the primary key, its
// subkeys, and the self-signature metadata needed to pick eligible subkeys.
// A Key is exclusively owned by one decrypt operation and must not be
// shared across concurrent operations.
type Key struct {
	primary        *packet.PublicKey
	primaryPrivate *packet.PrivateKey
	primaryFlags   packet.KeyFlags
	identities     []string
	subkeys        []subkey
}

type subkey struct {
	public  *packet.PublicKey
	private *packet.PrivateKey
	binding *packet.Signature
}

func (s *subkey) flags() packet.KeyFlags {
	if s.binding == nil {
		return packet.KeyFlags{}
	}
	return s.binding.KeyFlags
}

// --- Create Key object

// NewKey creates a new key from the unarmored or armored binary data.
func NewKey(binKeys []byte) (*Key, error) {
	return NewKeyFromReader(bytes.NewReader(clone(binKeys)))
}

// NewKeyFromArmored creates a new key from an armored key block string.
func NewKeyFromArmored(armored string) (*Key, error) {
	return NewKeyFromReader(strings.NewReader(armored))
}

// NewKeyFromReader reads binary or armored data into a Key object.
func NewKeyFromReader(r io.Reader) (*Key, error) {
	r, armored := armor.IsPGPArmored(r)
	if armored {
		body, err := armor.UnarmorReader(r)
		if err != nil {
			return nil, pgperrors.KeyParseError{Reason: "invalid key armor"}
		}
		r = body
	}
	key := &Key{}
	if err := key.readFrom(r); err != nil {
		return nil, err
	}
	return key, nil
}

// NewPrivateKeyFromArmored creates a new secret key from an armored key
// block and unlocks it with the passphrase.
func NewPrivateKeyFromArmored(armored string, passphrase []byte) (*Key, error) {
	lockedKey, err := NewKeyFromArmored(armored)
	if err != nil {
		return nil, err
	}
	if !lockedKey.IsPrivate() {
		return nil, pgperrors.KeyParseError{Reason: "key block contains no secret key material"}
	}
	if err := lockedKey.Unlock(passphrase); err != nil {
		return nil, err
	}
	return lockedKey, nil
}

// NewPrivateKey creates a new secret key from unarmored or armored binary
// data and unlocks it with the passphrase.
func NewPrivateKey(binKeys, passphrase []byte) (*Key, error) {
	lockedKey, err := NewKey(binKeys)
	if err != nil {
		return nil, err
	}
	if !lockedKey.IsPrivate() {
		return nil, pgperrors.KeyParseError{Reason: "key block contains no secret key material"}
	}
	if err := lockedKey.Unlock(passphrase); err != nil {
		return nil, err
	}
	return lockedKey, nil
}

// readFrom parses a single key transferable from r: a primary key packet,
// user IDs with their self-signatures, and subkeys with binding signatures.
func (key *Key) readFrom(r io.Reader) error {
	packets := packet.NewReader(r)
	first, err := packets.Next()
	if err != nil {
		return pgperrors.KeyParseError{Reason: "key block contains no packets"}
	}
	switch p := first.(type) {
	case *packet.PrivateKey:
		if p.IsSubkey() {
			return pgperrors.KeyParseError{Reason: "key block starts with a subkey"}
		}
		key.primary = &p.PublicKey
		key.primaryPrivate = p
	case *packet.PublicKey:
		if p.IsSubkey() {
			return pgperrors.KeyParseError{Reason: "key block starts with a subkey"}
		}
		key.primary = p
	default:
		return pgperrors.KeyParseError{Reason: "key block does not start with a key packet"}
	}

	currentSub := -1
	for {
		p, err := packets.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if _, ok := err.(pgperrors.UnsupportedError); ok {
				// Skip packets with algorithms we cannot handle; the
				// remaining material may still be usable.
				continue
			}
			return pgperrors.KeyParseError{Reason: err.Error()}
		}
		switch p := p.(type) {
		case *packet.UserID:
			currentSub = -1
			key.identities = append(key.identities, p.ID)
		case *packet.PrivateKey:
			if !p.IsSubkey() {
				return pgperrors.KeyParseError{Reason: "key block contains a second primary key"}
			}
			key.subkeys = append(key.subkeys, subkey{public: &p.PublicKey, private: p})
			currentSub = len(key.subkeys) - 1
		case *packet.PublicKey:
			if !p.IsSubkey() {
				return pgperrors.KeyParseError{Reason: "key block contains a second primary key"}
			}
			key.subkeys = append(key.subkeys, subkey{public: p})
			currentSub = len(key.subkeys) - 1
		case *packet.Signature:
			switch {
			case p.SigType == packet.SigTypeSubkeyBinding && currentSub >= 0:
				// Keep the most recent binding signature.
				sub := &key.subkeys[currentSub]
				if sub.binding == nil || p.CreationTime.After(sub.binding.CreationTime) {
					sub.binding = p
				}
			case p.SigType >= packet.SigTypeGenericCert && p.SigType <= packet.SigTypePositiveCert:
				if p.IssuerKeyID == key.primary.KeyID && p.KeyFlags.Valid {
					key.primaryFlags = p.KeyFlags
				}
			}
		default:
			// Trust packets and other key ring metadata are ignored.
		}
	}
	if key.primaryPrivate == nil {
		// Public key block: every listed subkey must be public-only.
		for _, sub := range key.subkeys {
			if sub.private != nil {
				return pgperrors.KeyParseError{Reason: "public key block carries secret subkey material"}
			}
		}
	}
	return nil
}

// --- Operate on key

// IsPrivate returns true if the key contains secret key material.
func (key *Key) IsPrivate() bool {
	return key.primaryPrivate != nil
}

// IsLocked checks if any secret parameters are still passphrase protected.
func (key *Key) IsLocked() (bool, error) {
	if key.primaryPrivate == nil {
		return false, errors.New("pgpcore: a public key cannot be locked")
	}
	if key.primaryPrivate.Encrypted {
		return true, nil
	}
	for _, sub := range key.subkeys {
		if sub.private != nil && sub.private.Encrypted {
			return true, nil
		}
	}
	return false, nil
}

// Unlock decrypts the secret parameters of the primary key and all subkeys
// in place. A checksum failure on any of them surfaces as PassphraseError
// and leaves no partially usable material behind.
func (key *Key) Unlock(passphrase []byte) error {
	if key.primaryPrivate == nil {
		return errors.New("pgpcore: a public key cannot be unlocked")
	}
	if err := key.primaryPrivate.Unlock(passphrase); err != nil {
		return err
	}
	for _, sub := range key.subkeys {
		if sub.private == nil {
			continue
		}
		if err := sub.private.Unlock(passphrase); err != nil {
			key.ClearPrivateParams()
			return err
		}
	}
	return nil
}

// ClearPrivateParams wipes all unlocked secret key material.
func (key *Key) ClearPrivateParams() (ok bool) {
	if key.primaryPrivate != nil {
		key.primaryPrivate.Wipe()
		ok = true
	}
	for _, sub := range key.subkeys {
		if sub.private != nil {
			sub.private.Wipe()
			ok = true
		}
	}
	return ok
}

// --- Key object properties

// GetKeyID returns the primary key ID, encoded as 8-byte int.
func (key *Key) GetKeyID() uint64 {
	return key.primary.KeyID
}

// GetHexKeyID returns the primary key ID, hex encoded as a string.
func (key *Key) GetHexKeyID() string {
	return keyIDToHex(key.GetKeyID())
}

// GetFingerprint gets the fingerprint from the primary key.
func (key *Key) GetFingerprint() string {
	return hex.EncodeToString(key.primary.Fingerprint)
}

// GetFingerprintBytes gets the fingerprint from the primary key as bytes.
func (key *Key) GetFingerprintBytes() []byte {
	return key.primary.Fingerprint
}

// GetIdentities returns the user IDs bound to the key.
func (key *Key) GetIdentities() []string {
	return key.identities
}

// CanEncrypt returns true if the key has an encryption-capable key.
func (key *Key) CanEncrypt() bool {
	return len(key.encryptionPrivateKeys()) > 0 || len(key.encryptionCandidates()) > 0
}

// CanVerify returns true if the key has a signing-capable key.
func (key *Key) CanVerify() bool {
	if key.primary.Algo.CanSign() {
		return true
	}
	for _, sub := range key.subkeys {
		if sub.public.Algo.CanSign() && sub.flags().Sign {
			return true
		}
	}
	return false
}

// encryptionCandidates lists the public keys usable for encryption, most
// recently created eligible subkey first, primary key last.
func (key *Key) encryptionCandidates() []*packet.PublicKey {
	var out []*packet.PublicKey
	subs := make([]subkey, len(key.subkeys))
	copy(subs, key.subkeys)
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].public.CreationTime.After(subs[j].public.CreationTime)
	})
	for _, sub := range subs {
		if !sub.public.Algo.CanEncrypt() {
			continue
		}
		flags := sub.flags()
		if flags.Valid && !flags.CanEncrypt() {
			continue
		}
		out = append(out, sub.public)
	}
	if key.primary.Algo.CanEncrypt() && (!key.primaryFlags.Valid || key.primaryFlags.CanEncrypt()) {
		out = append(out, key.primary)
	}
	return out
}

// encryptionPrivateKeys lists the unlocked private keys usable for session
// key decryption, in the same preference order as encryptionCandidates.
func (key *Key) encryptionPrivateKeys() []*packet.PrivateKey {
	if key.primaryPrivate == nil {
		return nil
	}
	var out []*packet.PrivateKey
	subs := make([]subkey, len(key.subkeys))
	copy(subs, key.subkeys)
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].public.CreationTime.After(subs[j].public.CreationTime)
	})
	for _, sub := range subs {
		if sub.private == nil || !sub.public.Algo.CanEncrypt() {
			continue
		}
		flags := sub.flags()
		if flags.Valid && !flags.CanEncrypt() {
			continue
		}
		out = append(out, sub.private)
	}
	if key.primary.Algo.CanEncrypt() && (!key.primaryFlags.Valid || key.primaryFlags.CanEncrypt()) {
		out = append(out, key.primaryPrivate)
	}
	return out
}

// signingKeyByID returns the public key matching keyID if it is capable of
// signing, checking the primary key and all subkeys.
func (key *Key) signingKeyByID(keyID uint64) *packet.PublicKey {
	if key.primary.KeyID == keyID && key.primary.Algo.CanSign() {
		return key.primary
	}
	for _, sub := range key.subkeys {
		if sub.public.KeyID == keyID && sub.public.Algo.CanSign() {
			return sub.public
		}
	}
	return nil
}

// decryptionKeyByID returns the unlocked private key matching keyID. A zero
// keyID (anonymous recipient) matches every eligible key.
func (key *Key) decryptionKeysByID(keyID uint64) []*packet.PrivateKey {
	eligible := key.encryptionPrivateKeys()
	if keyID == 0 {
		return eligible
	}
	var out []*packet.PrivateKey
	for _, priv := range eligible {
		if priv.KeyID == keyID {
			out = append(out, priv)
		}
	}
	return out
}

// keyIDToHex casts a keyID to hex with the correct padding.
func keyIDToHex(keyID uint64) string {
	return fmt.Sprintf("%016v", strconv.FormatUint(keyID, 16))
}
