package crypto

import (
	"github.com/pkg/errors"
)

// KeyRing contains multiple keys. Keys are referenced, not copied; the ring
// shares ownership semantics with its keys.
type KeyRing struct {
	keys []*Key
}

// NewKeyRing creates a new KeyRing, empty if the given key is nil.
func NewKeyRing(key *Key) (*KeyRing, error) {
	keyRing := &KeyRing{}
	var err error
	if key != nil {
		err = keyRing.AddKey(key)
	}
	return keyRing, err
}

// AddKey adds the given key to the keyring.
func (keyRing *KeyRing) AddKey(key *Key) error {
	if key == nil {
		return errors.New("pgpcore: nil key added to the keyring")
	}
	keyRing.keys = append(keyRing.keys, key)
	return nil
}

// CountEntities returns the number of keys in the keyring.
func (keyRing *KeyRing) CountEntities() int {
	return len(keyRing.keys)
}

// GetKeys returns the keys in the keyring.
func (keyRing *KeyRing) GetKeys() []*Key {
	return keyRing.keys
}

// GetKeyIDs returns the primary key IDs of all keys in the keyring.
func (keyRing *KeyRing) GetKeyIDs() []uint64 {
	ids := make([]uint64, len(keyRing.keys))
	for i, key := range keyRing.keys {
		ids[i] = key.GetKeyID()
	}
	return ids
}

// CanVerify returns true if any key in the keyring can verify signatures.
func (keyRing *KeyRing) CanVerify() bool {
	for _, key := range keyRing.keys {
		if key.CanVerify() {
			return true
		}
	}
	return false
}

// ClearPrivateParams wipes the secret material of every key in the ring.
func (keyRing *KeyRing) ClearPrivateParams() {
	for _, key := range keyRing.keys {
		if key.IsPrivate() {
			key.ClearPrivateParams()
		}
	}
}

// signerByKeyID finds the key owning the signing (sub)key with the given
// key ID, returning both. Nil if no key in the ring matches.
func (keyRing *KeyRing) signerByKeyID(keyID uint64) (*Key, bool) {
	for _, key := range keyRing.keys {
		if key.signingKeyByID(keyID) != nil {
			return key, true
		}
	}
	return nil, false
}
