// Package pgperrors defines the typed error taxonomy shared by the packet
// and crypto layers. Callers are expected to discriminate with errors.As,
// as the classes are operationally distinct: a wrong passphrase, a wrong
// recipient key, a corrupted ciphertext and an untrusted signer each get
// their own type.
package pgperrors

import "fmt"

// MalformedPacketError reports structurally invalid packet framing, e.g. a
// declared body length that exceeds the remaining input.
type MalformedPacketError struct {
	Reason string
}

func (e MalformedPacketError) Error() string {
	return "pgpcore: malformed packet: " + e.Reason
}

// KeyParseError reports a structurally invalid key block.
type KeyParseError struct {
	Reason string
}

func (e KeyParseError) Error() string {
	return "pgpcore: invalid key block: " + e.Reason
}

// PassphraseError reports that a private key's encrypted parameters failed
// to unlock with the supplied passphrase, detected via the checksum over
// the decrypted parameter block.
type PassphraseError struct {
	KeyID uint64
}

func (e PassphraseError) Error() string {
	if e.KeyID != 0 {
		return fmt.Sprintf("pgpcore: private key %016x did not unlock with the given passphrase", e.KeyID)
	}
	return "pgpcore: private key did not unlock with the given passphrase"
}

// SessionKeyError reports a failed session key unwrap. The embedded checksum
// mismatch is the primary signal that the wrong private key was supplied;
// it must stay distinguishable from PassphraseError.
type SessionKeyError struct {
	Reason string
}

func (e SessionKeyError) Error() string {
	return "pgpcore: session key could not be recovered: " + e.Reason
}

// IntegrityError reports that the modification detection code or AEAD tag
// of an encrypted data packet did not match the decrypted stream.
type IntegrityError struct {
	Reason string
}

func (e IntegrityError) Error() string {
	return "pgpcore: message integrity check failed: " + e.Reason
}

// UnsupportedError reports a well-formed packet using an algorithm or
// feature this implementation does not handle.
type UnsupportedError struct {
	Feature string
}

func (e UnsupportedError) Error() string {
	return "pgpcore: unsupported: " + e.Feature
}
