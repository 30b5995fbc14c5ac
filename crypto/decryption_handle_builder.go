package crypto

// DecryptionHandleBuilder configures a decryption handle to decrypt a pgp
// message.
type DecryptionHandleBuilder struct {
	handle *decryptionHandle
	err    error
}

func newDecryptionHandleBuilder(clock Clock) *DecryptionHandleBuilder {
	return &DecryptionHandleBuilder{
		handle: defaultDecryptionHandle(clock),
	}
}

// DecryptionKeys sets the secret keys for decrypting the pgp message.
// Assumes that the message was encrypted towards one of the secret keys.
// If not set, a SessionKey must be provided.
func (dpb *DecryptionHandleBuilder) DecryptionKeys(decryptionKeyRing *KeyRing) *DecryptionHandleBuilder {
	dpb.handle.DecryptionKeyRing = decryptionKeyRing
	return dpb
}

// DecryptionKey sets a single secret key for decrypting the pgp message.
func (dpb *DecryptionHandleBuilder) DecryptionKey(decryptionKey *Key) *DecryptionHandleBuilder {
	var err error
	if dpb.handle.DecryptionKeyRing == nil {
		dpb.handle.DecryptionKeyRing, err = NewKeyRing(decryptionKey)
	} else {
		err = dpb.handle.DecryptionKeyRing.AddKey(decryptionKey)
	}
	dpb.err = err
	return dpb
}

// SessionKey sets an already resolved session key for decrypting the pgp
// message, bypassing the encrypted key packets.
func (dpb *DecryptionHandleBuilder) SessionKey(sessionKey *SessionKey) *DecryptionHandleBuilder {
	dpb.handle.SessionKey = sessionKey
	return dpb
}

// VerificationKeys sets the public keys for verifying the signature of the
// pgp message, if any.
func (dpb *DecryptionHandleBuilder) VerificationKeys(keys *KeyRing) *DecryptionHandleBuilder {
	dpb.handle.VerifyKeyRing = keys
	return dpb
}

// VerificationKey sets a single public key for signature verification.
func (dpb *DecryptionHandleBuilder) VerificationKey(key *Key) *DecryptionHandleBuilder {
	var err error
	if dpb.handle.VerifyKeyRing == nil {
		dpb.handle.VerifyKeyRing, err = NewKeyRing(key)
	} else {
		err = dpb.handle.VerifyKeyRing.AddKey(key)
	}
	dpb.err = err
	return dpb
}

// InsecureAllowUnauthenticatedPlaintext surfaces plaintext that failed or
// lacks integrity protection, flagged as not authentic, instead of
// returning an IntegrityError. Diagnostics only; never treat such output
// as trusted.
func (dpb *DecryptionHandleBuilder) InsecureAllowUnauthenticatedPlaintext() *DecryptionHandleBuilder {
	dpb.handle.InsecureAllowUnauthenticatedPlaintext = true
	return dpb
}

// RetainSessionKey keeps the session key resolved during decryption from
// being wiped when the operation finishes.
func (dpb *DecryptionHandleBuilder) RetainSessionKey() *DecryptionHandleBuilder {
	dpb.handle.RetainSessionKey = true
	return dpb
}

// VerifyTime sets the unix timestamp used in expiration checks instead of
// the system time.
func (dpb *DecryptionHandleBuilder) VerifyTime(unixTime int64) *DecryptionHandleBuilder {
	dpb.handle.clock = NewConstantClock(unixTime)
	return dpb
}

// New creates the decryption handle struct configured by the builder.
func (dpb *DecryptionHandleBuilder) New() (PGPDecryption, error) {
	if dpb.err != nil {
		return nil, dpb.err
	}
	if err := dpb.handle.validate(); err != nil {
		return nil, err
	}
	handle := dpb.handle
	dpb.handle = defaultDecryptionHandle(handle.clock)
	return handle, nil
}
