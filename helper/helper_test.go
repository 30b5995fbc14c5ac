package helper

import (
	"bytes"
	"testing"

	openpgp "github.com/ProtonMail/go-crypto/openpgp/v2"
	gcpacket "github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/stretchr/testify/assert"

	"github.com/pgpcore/pgpcore/armor"
	"github.com/pgpcore/pgpcore/constants"
	"github.com/pgpcore/pgpcore/crypto"
)

var helperPassphrase = []byte("apple pie")

func generateTestEntity(t *testing.T) *openpgp.Entity {
	t.Helper()
	cfg := &gcpacket.Config{
		Algorithm: gcpacket.PubKeyAlgoRSA,
		RSABits:   2048,
	}
	entity, err := openpgp.NewEntity("carol", "", "carol@example.com", cfg)
	if err != nil {
		t.Fatal("Expected no error while generating test key, got:", err)
	}
	return entity
}

func armoredKeys(t *testing.T, entity *openpgp.Entity, passphrase []byte) (public, private string) {
	t.Helper()
	var pubBuf bytes.Buffer
	if err := entity.Serialize(&pubBuf); err != nil {
		t.Fatal(err)
	}
	public, err := armor.ArmorWithType(pubBuf.Bytes(), constants.PublicKeyHeader)
	if err != nil {
		t.Fatal(err)
	}

	if err := entity.PrivateKey.Encrypt(passphrase); err != nil {
		t.Fatal(err)
	}
	for i := range entity.Subkeys {
		if err := entity.Subkeys[i].PrivateKey.Encrypt(passphrase); err != nil {
			t.Fatal(err)
		}
	}
	var privBuf bytes.Buffer
	if err := entity.SerializePrivateWithoutSigning(&privBuf, nil); err != nil {
		t.Fatal(err)
	}
	private, err = armor.ArmorWithType(privBuf.Bytes(), constants.PrivateKeyHeader)
	if err != nil {
		t.Fatal(err)
	}
	return public, private
}

func armoredMessage(t *testing.T, recipient *openpgp.Entity, signer *openpgp.Entity, plaintext []byte) string {
	t.Helper()
	var buf bytes.Buffer
	var signers []*openpgp.Entity
	if signer != nil {
		signers = []*openpgp.Entity{signer}
	}
	writer, err := openpgp.EncryptWithParams(&buf, []*openpgp.Entity{recipient}, nil, &openpgp.EncryptParams{
		Signers: signers,
	})
	if err != nil {
		t.Fatal("Expected no error while encrypting, got:", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	armored, err := armor.ArmorWithType(buf.Bytes(), constants.PGPMessageHeader)
	if err != nil {
		t.Fatal(err)
	}
	return armored
}

func TestDecryptMessageArmored(t *testing.T) {
	entity := generateTestEntity(t)
	message := armoredMessage(t, entity, nil, []byte("plain and simple"))
	_, private := armoredKeys(t, entity, helperPassphrase)

	plaintext, err := DecryptMessageArmored(private, helperPassphrase, message)
	if err != nil {
		t.Fatal("Expected no error while decrypting, got:", err)
	}
	assert.Exactly(t, []byte("plain and simple"), plaintext)

	_, err = DecryptMessageArmored(private, []byte("wrong"), message)
	assert.Error(t, err)
}

func TestDecryptVerifyMessageArmored(t *testing.T) {
	entity := generateTestEntity(t)
	message := armoredMessage(t, entity, entity, []byte("signed and sealed"))
	public, private := armoredKeys(t, entity, helperPassphrase)

	result, err := DecryptVerifyMessageArmored(public, private, helperPassphrase, message)
	if err != nil {
		t.Fatal("Expected no error while decrypting, got:", err)
	}
	assert.Exactly(t, []byte("signed and sealed"), result.Plaintext)
	assert.Exactly(t, crypto.Valid, result.Verification)
	assert.True(t, result.IntegrityOK)
}

func TestDecryptAndVerifySkipsVerification(t *testing.T) {
	entity := generateTestEntity(t)
	message := armoredMessage(t, entity, entity, []byte("signed but unchecked"))
	_, private := armoredKeys(t, entity, helperPassphrase)

	result, err := DecryptAndVerify([]byte(message), []byte(private), helperPassphrase, nil)
	if err != nil {
		t.Fatal("Expected no error while decrypting, got:", err)
	}
	assert.Exactly(t, crypto.VerificationSkipped, result.Verification)
}
