package crypto

import (
	"bytes"
	"testing"

	openpgp "github.com/ProtonMail/go-crypto/openpgp/v2"
	gcpacket "github.com/ProtonMail/go-crypto/openpgp/packet"
)

// Test keys and messages are generated with go-crypto so that decryption is
// exercised against an independent producer rather than our own output.

func generateRSAEntity(t *testing.T) *openpgp.Entity {
	t.Helper()
	cfg := &gcpacket.Config{
		Algorithm: gcpacket.PubKeyAlgoRSA,
		RSABits:   2048,
	}
	entity, err := openpgp.NewEntity("alice", "", "alice@example.com", cfg)
	if err != nil {
		t.Fatal("Expected no error while generating test key, got:", err)
	}
	return entity
}

func generateEdDSAEntity(t *testing.T) *openpgp.Entity {
	t.Helper()
	cfg := &gcpacket.Config{
		Algorithm: gcpacket.PubKeyAlgoEdDSA,
		Curve:     gcpacket.Curve25519,
	}
	entity, err := openpgp.NewEntity("bob", "", "bob@example.com", cfg)
	if err != nil {
		t.Fatal("Expected no error while generating test key, got:", err)
	}
	return entity
}

func serializePublic(t *testing.T, entity *openpgp.Entity) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := entity.Serialize(&buf); err != nil {
		t.Fatal("Expected no error while serializing public key, got:", err)
	}
	return buf.Bytes()
}

func serializePrivate(t *testing.T, entity *openpgp.Entity) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := entity.SerializePrivateWithoutSigning(&buf, nil); err != nil {
		t.Fatal("Expected no error while serializing private key, got:", err)
	}
	return buf.Bytes()
}

// lockEntity passphrase-protects all secret key packets in place. Any
// message to be signed by the entity must be produced before locking.
func lockEntity(t *testing.T, entity *openpgp.Entity, passphrase []byte) {
	t.Helper()
	if err := entity.PrivateKey.Encrypt(passphrase); err != nil {
		t.Fatal("Expected no error while locking primary key, got:", err)
	}
	for i := range entity.Subkeys {
		if err := entity.Subkeys[i].PrivateKey.Encrypt(passphrase); err != nil {
			t.Fatal("Expected no error while locking subkey, got:", err)
		}
	}
}

func encryptTestMessage(t *testing.T, recipients []*openpgp.Entity, signers []*openpgp.Entity, plaintext []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer, err := openpgp.EncryptWithParams(&buf, recipients, nil, &openpgp.EncryptParams{
		Signers: signers,
	})
	if err != nil {
		t.Fatal("Expected no error while encrypting test message, got:", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		t.Fatal("Expected no error while writing test message, got:", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal("Expected no error while closing test message, got:", err)
	}
	return buf.Bytes()
}

func privateTestKey(t *testing.T, entity *openpgp.Entity) *Key {
	t.Helper()
	key, err := NewKey(serializePrivate(t, entity))
	if err != nil {
		t.Fatal("Expected no error while parsing private key, got:", err)
	}
	return key
}

func publicTestKey(t *testing.T, entity *openpgp.Entity) *Key {
	t.Helper()
	key, err := NewKey(serializePublic(t, entity))
	if err != nil {
		t.Fatal("Expected no error while parsing public key, got:", err)
	}
	return key
}

func singleKeyRing(t *testing.T, key *Key) *KeyRing {
	t.Helper()
	ring, err := NewKeyRing(key)
	if err != nil {
		t.Fatal("Expected no error while building keyring, got:", err)
	}
	return ring
}
