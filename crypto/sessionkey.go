package crypto

import (
	"encoding/base64"

	"github.com/pkg/errors"

	"github.com/pgpcore/pgpcore/constants"
	"github.com/pgpcore/pgpcore/packet"
)

// SessionKey stores a decrypted session key. It exists transiently between
// resolution and use; Clear it when the operation finishes. Session keys
// are never persisted or logged.
type SessionKey struct {
	// Key is the decrypted binary session key.
	Key []byte
	// Algo is the symmetric encryption algorithm used with this key.
	Algo string
}

var symKeyAlgos = map[string]packet.CipherFunction{
	constants.ThreeDES:  packet.Cipher3DES,
	constants.TripleDES: packet.Cipher3DES,
	constants.CAST5:     packet.CipherCAST5,
	constants.AES128:    packet.CipherAES128,
	constants.AES192:    packet.CipherAES192,
	constants.AES256:    packet.CipherAES256,
}

// GetCipherFunc returns the cipher function corresponding to the algorithm
// used with this SessionKey.
func (sk *SessionKey) GetCipherFunc() (packet.CipherFunction, error) {
	cf, ok := symKeyAlgos[sk.Algo]
	if !ok {
		return cf, errors.New("pgpcore: unsupported cipher function: " + sk.Algo)
	}
	return cf, nil
}

// GetBase64Key returns the session key as base64 encoded string.
func (sk *SessionKey) GetBase64Key() string {
	return base64.StdEncoding.EncodeToString(sk.Key)
}

// Clear zeroes the session key bytes.
func (sk *SessionKey) Clear() (ok bool) {
	for i := range sk.Key {
		sk.Key[i] = 0
	}
	return true
}

// NewSessionKeyFromToken creates a SessionKey struct with the given token
// and algorithm. Clones the token.
func NewSessionKeyFromToken(token []byte, algo string) *SessionKey {
	return &SessionKey{
		Key:  clone(token),
		Algo: algo,
	}
}

func newSessionKeyFromCipherFunc(cf packet.CipherFunction, key []byte) (*SessionKey, error) {
	algo := getAlgo(cf)
	if algo == "" {
		return nil, errors.Errorf("pgpcore: unsupported cipher function: %v", cf)
	}
	sk := &SessionKey{Key: key, Algo: algo}
	if err := sk.checkSize(); err != nil {
		return nil, errors.Wrap(err, "pgpcore: unable to use decrypted session key")
	}
	return sk, nil
}

func (sk *SessionKey) checkSize() error {
	cf, ok := symKeyAlgos[sk.Algo]
	if !ok {
		return errors.New("unknown symmetric key algorithm")
	}
	if cf.KeySize() != len(sk.Key) {
		return errors.New("wrong session key size")
	}
	return nil
}

func getAlgo(cipher packet.CipherFunction) string {
	for k, v := range symKeyAlgos {
		if k == constants.TripleDES {
			continue
		}
		if v == cipher {
			return k
		}
	}
	return ""
}

func clone(input []byte) []byte {
	data := make([]byte, len(input))
	copy(data, input)
	return data
}
