package crypto

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/pgpcore/pgpcore/packet"
	"github.com/pgpcore/pgpcore/pgperrors"
)

// decryptState tracks the progress of one decrypt operation. The stages are
// strictly sequential; any failure exits the machine carrying the
// originating stage's error. Cryptographic failures are never retried.
type decryptState int8

const (
	stateStart decryptState = iota
	statePacketsParsed
	stateSessionKeyResolved
	stateDecrypted
	stateVerified
	stateVerificationSkipped
	stateDone
)

// decryptOperation owns the transient material of a single decrypt run.
// Session keys resolved by the operation are wiped on every exit path.
type decryptOperation struct {
	handle *decryptionHandle
	state  decryptState

	encryptedKeys []*packet.EncryptedKey
	dataPacket    packet.Packet
	sessionKey    *SessionKey
	ownsSession   bool

	innerBytes  []byte
	integrityOK bool

	literal    *packet.LiteralData
	signatures []*packet.Signature
}

func (op *decryptOperation) run(message io.Reader) (result *DecryptionResult, err error) {
	defer func() {
		if op.sessionKey != nil && op.ownsSession && !op.handle.RetainSessionKey {
			op.sessionKey.Clear()
		}
	}()

	if err := op.parsePackets(message); err != nil {
		return nil, errors.Wrap(err, "pgpcore: parsing message packets failed")
	}
	if err := op.resolveSessionKey(); err != nil {
		return nil, errors.Wrap(err, "pgpcore: resolving session key failed")
	}
	if err := op.decryptData(); err != nil {
		return nil, errors.Wrap(err, "pgpcore: decrypting data packet failed")
	}
	if err := op.openLiteralData(); err != nil {
		return nil, errors.Wrap(err, "pgpcore: reading decrypted packets failed")
	}
	return op.verify()
}

// parsePackets splits the outer message into session key packets and the
// encrypted data packet. Start -> PacketsParsed.
func (op *decryptOperation) parsePackets(message io.Reader) error {
	packets := packet.NewReader(message)
	for {
		p, err := packets.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		switch p := p.(type) {
		case *packet.EncryptedKey:
			op.encryptedKeys = append(op.encryptedKeys, p)
		case *packet.SymEncIntegrityProtected, *packet.AEADEncrypted, *packet.SymmetricallyEncrypted:
			if op.dataPacket == nil {
				op.dataPacket = p
			}
		default:
			// Marker and other packets are legal anywhere in the stream.
		}
	}
	if op.dataPacket == nil {
		return pgperrors.MalformedPacketError{Reason: "message contains no encrypted data packet"}
	}
	op.state = statePacketsParsed
	return nil
}

// resolveSessionKey unwraps the session key with the configured decryption
// keys, unless the caller supplied one directly. PacketsParsed ->
// SessionKeyResolved.
func (op *decryptOperation) resolveSessionKey() error {
	if op.handle.SessionKey != nil {
		op.sessionKey = op.handle.SessionKey
		op.state = stateSessionKeyResolved
		return nil
	}
	if len(op.encryptedKeys) == 0 {
		return pgperrors.MalformedPacketError{Reason: "message contains no session key packet"}
	}
	sk, err := resolveSessionKey(op.encryptedKeys, op.handle.DecryptionKeyRing)
	if err != nil {
		return err
	}
	op.sessionKey = sk
	op.ownsSession = true
	op.state = stateSessionKeyResolved
	return nil
}

// resolveSessionKey tries every encrypted key packet against every eligible
// private key in the ring. Per-packet checksum failures are kept and only
// surfaced when no packet unwraps, so that a multi-recipient message
// decrypts as long as one recipient key matches.
func resolveSessionKey(encryptedKeys []*packet.EncryptedKey, keyRing *KeyRing) (*SessionKey, error) {
	var lastErr error
	matched := false
	for _, ek := range encryptedKeys {
		for _, key := range keyRing.GetKeys() {
			for _, priv := range key.decryptionKeysByID(ek.KeyID) {
				matched = true
				cf, raw, err := ek.Decrypt(priv)
				if err != nil {
					lastErr = err
					continue
				}
				sk, err := newSessionKeyFromCipherFunc(cf, raw)
				if err != nil {
					lastErr = err
					continue
				}
				return sk, nil
			}
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	if !matched {
		return nil, pgperrors.SessionKeyError{Reason: "no decryption key matches the message recipients"}
	}
	return nil, pgperrors.SessionKeyError{Reason: "session key could not be unwrapped"}
}

// decryptData streams the data packet through the session key.
// SessionKeyResolved -> Decrypted. An integrity failure aborts here unless
// the handle explicitly allows unauthenticated plaintext.
func (op *decryptOperation) decryptData() error {
	cf, err := op.sessionKey.GetCipherFunc()
	if err != nil {
		return err
	}
	switch data := op.dataPacket.(type) {
	case *packet.SymEncIntegrityProtected:
		plaintext, err := data.Decrypt(cf, op.sessionKey.Key)
		if err != nil {
			if _, isIntegrity := errorAsIntegrity(err); isIntegrity && op.handle.InsecureAllowUnauthenticatedPlaintext {
				op.innerBytes = plaintext
				op.integrityOK = false
				break
			}
			return err
		}
		op.innerBytes = plaintext
		op.integrityOK = true
	case *packet.AEADEncrypted:
		// AEAD never releases unauthenticated plaintext.
		plaintext, err := data.Decrypt(op.sessionKey.Key)
		if err != nil {
			return err
		}
		op.innerBytes = plaintext
		op.integrityOK = true
	case *packet.SymmetricallyEncrypted:
		if !op.handle.InsecureAllowUnauthenticatedPlaintext {
			return pgperrors.IntegrityError{Reason: "legacy encrypted data packet carries no integrity protection"}
		}
		plaintext, err := data.Decrypt(cf, op.sessionKey.Key)
		if err != nil {
			return err
		}
		op.innerBytes = plaintext
		op.integrityOK = false
	default:
		return pgperrors.MalformedPacketError{Reason: "unknown encrypted data packet"}
	}
	op.state = stateDecrypted
	return nil
}

func errorAsIntegrity(err error) (pgperrors.IntegrityError, bool) {
	var ie pgperrors.IntegrityError
	ok := errors.As(err, &ie)
	return ie, ok
}

// openLiteralData parses the decrypted packet stream down to the literal
// data, inflating compressed packets and collecting signature packets.
func (op *decryptOperation) openLiteralData() error {
	stream := op.innerBytes
	// Compression may nest, bounded to keep adversarial input in check.
	for depth := 0; depth < 4; depth++ {
		packets := packet.NewReader(bytes.NewReader(stream))
		var compressed *packet.Compressed
		for {
			p, err := packets.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			switch p := p.(type) {
			case *packet.Compressed:
				if compressed == nil {
					compressed = p
				}
			case *packet.LiteralData:
				if op.literal == nil {
					op.literal = p
				}
			case *packet.Signature:
				op.signatures = append(op.signatures, p)
			case *packet.OnePassSignature:
				// The trailing signature packet carries everything needed.
			}
		}
		if op.literal != nil {
			return nil
		}
		if compressed == nil {
			return pgperrors.MalformedPacketError{Reason: "decrypted message contains no literal data"}
		}
		inflated, err := compressed.Decompress()
		if err != nil {
			return err
		}
		stream = inflated
	}
	return pgperrors.MalformedPacketError{Reason: "compression nesting too deep"}
}

// verify checks the collected signatures. Decrypted -> Verified or
// VerificationSkipped -> Done.
func (op *decryptOperation) verify() (*DecryptionResult, error) {
	result := &DecryptionResult{
		Plaintext:   op.literal.Contents,
		IntegrityOK: op.integrityOK,
		Filename:    op.literal.FileName,
		FileTime:    op.literal.Time,
	}
	switch {
	case op.handle.VerifyKeyRing == nil:
		result.Verification = VerificationSkipped
		op.state = stateVerificationSkipped
	case len(op.signatures) == 0:
		result.Verification = NotSigned
		op.state = stateVerified
	default:
		verifications := make([]signatureVerification, len(op.signatures))
		for i, sig := range op.signatures {
			verifications[i] = verifySignature(sig, op.literal.Contents, op.handle.VerifyKeyRing, op.handle.verifyTime())
		}
		selected := selectVerification(verifications)
		result.Verification = selected.outcome
		result.SignedByKeyID = selected.keyID
		result.SignedBy = selected.signedBy
		result.verificationError = selected.cause
		op.state = stateVerified
	}
	op.state = stateDone
	return result, nil
}
