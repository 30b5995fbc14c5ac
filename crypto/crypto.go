// Package crypto provides a high-level API for OpenPGP message decryption
// and signature verification.
//
// The package exposes the abstract interface [PGPDecryption]. To get a
// concrete instantiation, configure a handle through the top level
// [PGPHandle]:
//
//	pgp := crypto.PGP()
//	decHandle, _ := pgp.Decryption().
//		DecryptionKeys(privateKeyRing).
//		VerificationKeys(publicKeyRing).
//		New()
//	result, err := decHandle.Decrypt(message, crypto.Auto)
//
// A handle and the keys it references belong to one operation at a time;
// independent operations must build their own handles over their own keys.
package crypto

// PGPHandle is the entry point to build decryption handles.
type PGPHandle struct {
	defaultClock Clock
}

// PGP creates a PGPHandle that reads the system time for expiration checks.
func PGP() *PGPHandle {
	return &PGPHandle{}
}

// PGPWithClock creates a PGPHandle with a fixed time source.
func PGPWithClock(clock Clock) *PGPHandle {
	return &PGPHandle{defaultClock: clock}
}

// Decryption returns a builder to create a decryption handle.
func (p *PGPHandle) Decryption() *DecryptionHandleBuilder {
	return newDecryptionHandleBuilder(p.defaultClock)
}

// PGPDecryption is an interface for decrypting pgp messages. A signature
// verification failure is reported in the DecryptionResult, not as an
// error; cryptographic and structural failures are reported as typed
// errors from the pgperrors package.
type PGPDecryption interface {
	// Decrypt decrypts an encrypted pgp message and verifies an embedded
	// signature when verification keys are configured.
	Decrypt(pgpMessage []byte, encoding PGPEncoding) (*DecryptionResult, error)
	// DecryptSessionKey decrypts encrypted session key packets.
	DecryptSessionKey(keyPackets []byte, encoding PGPEncoding) (*SessionKey, error)
}
