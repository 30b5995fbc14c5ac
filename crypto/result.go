package crypto

import (
	"time"
)

// VerificationOutcome is the result of a signature verification. Invalid
// and SignerUnknown are legitimate results, not errors: they must stay
// distinguishable because an unknown signer is an operational condition
// while a failed check is a cryptographic one.
type VerificationOutcome int8

const (
	// VerificationSkipped means no verification keyring was supplied.
	VerificationSkipped VerificationOutcome = iota
	// NotSigned means the message carries no signature.
	NotSigned
	// SignerUnknown means the signature's issuer matches none of the
	// supplied verification keys.
	SignerUnknown
	// Invalid means a matching key was found but the check failed.
	Invalid
	// Valid means the signature verified against a supplied key.
	Valid
)

func (v VerificationOutcome) String() string {
	switch v {
	case VerificationSkipped:
		return "skipped"
	case NotSigned:
		return "not signed"
	case SignerUnknown:
		return "signer unknown"
	case Invalid:
		return "invalid"
	case Valid:
		return "valid"
	}
	return "unknown"
}

// DecryptionResult is the immutable outcome of one decrypt operation.
type DecryptionResult struct {
	// Plaintext is the recovered literal data. It is only present when the
	// integrity check passed, or when the caller explicitly opted into the
	// unauthenticated diagnostics path.
	Plaintext []byte
	// IntegrityOK reports whether the modification detection code or AEAD
	// tag verified. When false the plaintext is not safe to treat as
	// authentic.
	IntegrityOK bool
	// Verification is the signature verification outcome.
	Verification VerificationOutcome
	// SignedByKeyID is the key ID of the key that produced the selected
	// signature, when one was present.
	SignedByKeyID uint64
	// SignedBy is the verification key that matched the signature, nil
	// unless Verification is Valid or Invalid.
	SignedBy *Key
	// verificationError holds the cause for an Invalid outcome.
	verificationError error

	// Literal data metadata.
	Filename string
	FileTime time.Time
}

// SignedByHexKeyID returns the signer key ID hex encoded, empty when the
// message was not signed.
func (r *DecryptionResult) SignedByHexKeyID() string {
	if r.SignedByKeyID == 0 {
		return ""
	}
	return keyIDToHex(r.SignedByKeyID)
}

// VerificationError returns the cause of an Invalid verification outcome,
// nil otherwise.
func (r *DecryptionResult) VerificationError() error {
	return r.verificationError
}
