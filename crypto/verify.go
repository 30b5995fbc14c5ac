package crypto

import (
	"crypto"

	"github.com/pkg/errors"

	"github.com/pgpcore/pgpcore/packet"
)

// Digest algorithms accepted for signature verification. Weaker hashes
// still parse but fail verification as insecure.
var allowedHashes = map[crypto.Hash]struct{}{
	crypto.SHA224: {},
	crypto.SHA256: {},
	crypto.SHA384: {},
	crypto.SHA512: {},
}

// signatureVerification is the outcome of checking one signature packet
// against a verification keyring.
type signatureVerification struct {
	outcome  VerificationOutcome
	signedBy *Key
	keyID    uint64
	cause    error
}

// verifySignature checks sig over plaintext using the keys in verifyKeyRing.
// An issuer that matches none of the supplied keys yields SignerUnknown
// rather than an error; a matching key with a failing check yields Invalid
// with the cryptographic cause attached.
func verifySignature(sig *packet.Signature, plaintext []byte, verifyKeyRing *KeyRing, verifyTime int64) signatureVerification {
	result := signatureVerification{keyID: sig.IssuerKeyID}

	signerKey, found := verifyKeyRing.signerByKeyID(sig.IssuerKeyID)
	if !found {
		result.outcome = SignerUnknown
		return result
	}
	result.signedBy = signerKey

	if _, ok := allowedHashes[sig.Hash]; !ok {
		result.outcome = Invalid
		result.cause = errors.New("pgpcore: insecure signature hash algorithm")
		return result
	}
	if sig.SigLifetimeSecs != 0 && verifyTime != 0 {
		expiry := sig.CreationTime.Unix() + int64(sig.SigLifetimeSecs)
		if verifyTime > expiry {
			result.outcome = Invalid
			result.cause = errors.New("pgpcore: signature has expired")
			return result
		}
	}

	pub := signerKey.signingKeyByID(sig.IssuerKeyID)
	if err := sig.Verify(plaintext, pub); err != nil {
		result.outcome = Invalid
		result.cause = err
		return result
	}
	result.outcome = Valid
	return result
}

// selectVerification picks the verification to report: the first valid
// one, else the last one with a matching key, else the last one.
func selectVerification(all []signatureVerification) signatureVerification {
	var selected *signatureVerification
	for i := range all {
		v := &all[i]
		if v.outcome == Valid {
			return *v
		}
		if v.signedBy != nil || selected == nil {
			selected = v
		}
	}
	return *selected
}
