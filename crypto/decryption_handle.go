package crypto

import (
	"bytes"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/pgpcore/pgpcore/armor"
	"github.com/pgpcore/pgpcore/packet"
	"github.com/pgpcore/pgpcore/pgperrors"
)

// decryptionHandle collects the configuration parameters to decrypt a pgp
// message. The handle holds no long-lived state: it is instantiated per
// call site through the builder and must not be shared across concurrent
// operations, since the keys it references are not.
type decryptionHandle struct {
	// DecryptionKeyRing provides the unlocked secret keys for decrypting
	// the message. If nil, SessionKey must be set.
	DecryptionKeyRing *KeyRing
	// SessionKey provides an already resolved session key for decrypting
	// the message, bypassing the key packets.
	SessionKey *SessionKey
	// VerifyKeyRing provides public keys to verify an embedded signature,
	// if any. If nil, verification is skipped.
	VerifyKeyRing *KeyRing
	// InsecureAllowUnauthenticatedPlaintext surfaces plaintext whose
	// integrity check failed or that carries no integrity protection,
	// flagged IntegrityOK=false, instead of failing. For diagnostics only.
	InsecureAllowUnauthenticatedPlaintext bool
	// RetainSessionKey keeps the resolved session key from being wiped so
	// DecryptSessionKey callers can reuse it.
	RetainSessionKey bool
	clock            Clock
}

func defaultDecryptionHandle(clock Clock) *decryptionHandle {
	return &decryptionHandle{clock: clock}
}

func (dh *decryptionHandle) validate() error {
	if dh.DecryptionKeyRing == nil && dh.SessionKey == nil {
		return errors.New("pgpcore: no decryption key or session key provided")
	}
	return nil
}

// Decrypt decrypts an encrypted pgp message and, when a verification
// keyring is configured, verifies the embedded signature. The encoding
// indicates if the input should be unarmored or not, i.e., Bytes/Armor/Auto
// where Auto detects automatically. On a signature verification failure the
// method does not return an error; the outcome is part of the result.
func (dh *decryptionHandle) Decrypt(pgpMessage []byte, encoding PGPEncoding) (*DecryptionResult, error) {
	if err := dh.validate(); err != nil {
		return nil, err
	}
	messageReader, unarmorIt := encoding.unarmorInput(bytes.NewReader(pgpMessage))
	if unarmorIt {
		var err error
		messageReader, err = armor.UnarmorReader(messageReader)
		if err != nil {
			return nil, errors.Wrap(err, "pgpcore: unarmoring message failed")
		}
	}
	op := &decryptOperation{handle: dh}
	return op.run(messageReader)
}

// DecryptSessionKey decrypts encrypted session key packets with the
// handle's decryption keys and returns the first session key a key
// unwraps. The caller owns the returned key and must Clear it.
func (dh *decryptionHandle) DecryptSessionKey(keyPackets []byte, encoding PGPEncoding) (*SessionKey, error) {
	if dh.DecryptionKeyRing == nil {
		return nil, errors.New("pgpcore: no decryption key provided")
	}
	reader, unarmorIt := encoding.unarmorInput(bytes.NewReader(keyPackets))
	if unarmorIt {
		var err error
		reader, err = armor.UnarmorReader(reader)
		if err != nil {
			return nil, errors.Wrap(err, "pgpcore: unarmoring key packets failed")
		}
	}
	var encryptedKeys []*packet.EncryptedKey
	packets := packet.NewReader(reader)
	for {
		p, err := packets.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "pgpcore: reading session key packets failed")
		}
		if ek, ok := p.(*packet.EncryptedKey); ok {
			encryptedKeys = append(encryptedKeys, ek)
		}
	}
	if len(encryptedKeys) == 0 {
		return nil, pgperrors.MalformedPacketError{Reason: "no session key packet found"}
	}
	return resolveSessionKey(encryptedKeys, dh.DecryptionKeyRing)
}

func (dh *decryptionHandle) verifyTime() int64 {
	if dh.clock == nil {
		return time.Now().Unix()
	}
	return dh.clock().Unix()
}
