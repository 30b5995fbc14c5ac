// Package helper contains one-call wrappers around the crypto package for
// the common decrypt-and-verify flows.
package helper

import (
	"github.com/pgpcore/pgpcore/crypto"
)

// DecryptAndVerify decrypts an armored or binary pgp message with the
// given private key and passphrase and, when publicKey is non-nil, verifies
// the embedded signature against it. All key material handled by this
// function is wiped before it returns, on success and failure alike.
func DecryptAndVerify(encrypted, privateKey, passphrase, publicKey []byte) (*crypto.DecryptionResult, error) {
	decKey, err := crypto.NewPrivateKey(privateKey, passphrase)
	if err != nil {
		return nil, err
	}
	defer decKey.ClearPrivateParams()

	builder := crypto.PGP().Decryption().DecryptionKey(decKey)
	if publicKey != nil {
		verifyKey, err := crypto.NewKey(publicKey)
		if err != nil {
			return nil, err
		}
		builder = builder.VerificationKey(verifyKey)
	}
	decHandle, err := builder.New()
	if err != nil {
		return nil, err
	}
	return decHandle.Decrypt(encrypted, crypto.Auto)
}

// DecryptMessageArmored decrypts an armored pgp message with a private key
// and its passphrase, skipping signature verification.
func DecryptMessageArmored(privateKey string, passphrase []byte, pgpMessage string) ([]byte, error) {
	result, err := DecryptAndVerify([]byte(pgpMessage), []byte(privateKey), passphrase, nil)
	if err != nil {
		return nil, err
	}
	return result.Plaintext, nil
}

// DecryptVerifyMessageArmored decrypts an armored pgp message with a
// private key and its passphrase and verifies the embedded signature
// against the armored public key.
func DecryptVerifyMessageArmored(publicKey, privateKey string, passphrase []byte, pgpMessage string) (*crypto.DecryptionResult, error) {
	return DecryptAndVerify([]byte(pgpMessage), []byte(privateKey), passphrase, []byte(publicKey))
}
