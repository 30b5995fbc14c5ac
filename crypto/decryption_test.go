package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/binary"
	"testing"

	gcpacket "github.com/ProtonMail/go-crypto/openpgp/packet"
	openpgp "github.com/ProtonMail/go-crypto/openpgp/v2"
	"github.com/stretchr/testify/assert"

	"github.com/pgpcore/pgpcore/armor"
	"github.com/pgpcore/pgpcore/constants"
	"github.com/pgpcore/pgpcore/pgperrors"
)

var testPlaintext = []byte("Where the stars are strange and the winds blow cold\n")

func TestDecryptRSAMessage(t *testing.T) {
	entity := generateRSAEntity(t)
	message := encryptTestMessage(t, []*openpgp.Entity{entity}, nil, testPlaintext)

	decHandle, err := PGP().Decryption().DecryptionKey(privateTestKey(t, entity)).New()
	if err != nil {
		t.Fatal("Expected no error while building handle, got:", err)
	}
	result, err := decHandle.Decrypt(message, Bytes)
	if err != nil {
		t.Fatal("Expected no error while decrypting, got:", err)
	}
	assert.Exactly(t, testPlaintext, result.Plaintext)
	assert.True(t, result.IntegrityOK)
	assert.Exactly(t, VerificationSkipped, result.Verification)
}

func TestDecryptCompressedMessage(t *testing.T) {
	entity := generateRSAEntity(t)

	var buf bytes.Buffer
	writer, err := openpgp.EncryptWithParams(&buf, []*openpgp.Entity{entity}, nil, &openpgp.EncryptParams{
		Config: &gcpacket.Config{DefaultCompressionAlgo: gcpacket.CompressionZLIB},
	})
	if err != nil {
		t.Fatal("Expected no error while encrypting compressed message, got:", err)
	}
	if _, err := writer.Write(testPlaintext); err != nil {
		t.Fatal("Expected no error while writing compressed message, got:", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal("Expected no error while closing compressed message, got:", err)
	}

	decHandle, err := PGP().Decryption().DecryptionKey(privateTestKey(t, entity)).New()
	if err != nil {
		t.Fatal("Expected no error while building handle, got:", err)
	}
	result, err := decHandle.Decrypt(buf.Bytes(), Bytes)
	if err != nil {
		t.Fatal("Expected no error while decrypting compressed message, got:", err)
	}
	assert.Exactly(t, testPlaintext, result.Plaintext)
	assert.True(t, result.IntegrityOK)
}

func TestDecryptArmoredMessage(t *testing.T) {
	entity := generateRSAEntity(t)
	message := encryptTestMessage(t, []*openpgp.Entity{entity}, nil, testPlaintext)
	armored, err := armor.ArmorWithType(message, constants.PGPMessageHeader)
	if err != nil {
		t.Fatal("Expected no error while armoring, got:", err)
	}

	decHandle, err := PGP().Decryption().DecryptionKey(privateTestKey(t, entity)).New()
	if err != nil {
		t.Fatal(err)
	}
	for _, encoding := range []PGPEncoding{Armor, Auto} {
		result, err := decHandle.Decrypt([]byte(armored), encoding)
		if err != nil {
			t.Fatal("Expected no error while decrypting armored message, got:", err)
		}
		assert.Exactly(t, testPlaintext, result.Plaintext)
	}

	// Auto must also pass binary input through untouched.
	result, err := decHandle.Decrypt(message, Auto)
	if err != nil {
		t.Fatal("Expected no error while decrypting binary message, got:", err)
	}
	assert.Exactly(t, testPlaintext, result.Plaintext)
}

func TestDecryptSignedMessage(t *testing.T) {
	entity := generateRSAEntity(t)
	message := encryptTestMessage(t, []*openpgp.Entity{entity}, []*openpgp.Entity{entity}, testPlaintext)

	decHandle, err := PGP().Decryption().
		DecryptionKey(privateTestKey(t, entity)).
		VerificationKey(publicTestKey(t, entity)).
		New()
	if err != nil {
		t.Fatal(err)
	}
	result, err := decHandle.Decrypt(message, Bytes)
	if err != nil {
		t.Fatal("Expected no error while decrypting, got:", err)
	}
	assert.Exactly(t, testPlaintext, result.Plaintext)
	assert.True(t, result.IntegrityOK)
	assert.Exactly(t, Valid, result.Verification)
	assert.Exactly(t, entity.PrimaryKey.KeyId, result.SignedByKeyID)
	assert.NotNil(t, result.SignedBy)
	assert.NoError(t, result.VerificationError())
}

func TestDecryptSignerUnknown(t *testing.T) {
	entity := generateRSAEntity(t)
	stranger := generateRSAEntity(t)
	message := encryptTestMessage(t, []*openpgp.Entity{entity}, []*openpgp.Entity{entity}, testPlaintext)

	decHandle, err := PGP().Decryption().
		DecryptionKey(privateTestKey(t, entity)).
		VerificationKey(publicTestKey(t, stranger)).
		New()
	if err != nil {
		t.Fatal(err)
	}
	result, err := decHandle.Decrypt(message, Bytes)
	if err != nil {
		t.Fatal("Expected no error while decrypting, got:", err)
	}
	assert.Exactly(t, testPlaintext, result.Plaintext, "plaintext is released; only the outcome differs")
	assert.Exactly(t, SignerUnknown, result.Verification)
	assert.Exactly(t, entity.PrimaryKey.KeyId, result.SignedByKeyID)
}

func TestDecryptNotSigned(t *testing.T) {
	entity := generateRSAEntity(t)
	message := encryptTestMessage(t, []*openpgp.Entity{entity}, nil, testPlaintext)

	decHandle, err := PGP().Decryption().
		DecryptionKey(privateTestKey(t, entity)).
		VerificationKey(publicTestKey(t, entity)).
		New()
	if err != nil {
		t.Fatal(err)
	}
	result, err := decHandle.Decrypt(message, Bytes)
	if err != nil {
		t.Fatal("Expected no error while decrypting, got:", err)
	}
	assert.Exactly(t, NotSigned, result.Verification)
}

func TestDecryptEdDSAMessage(t *testing.T) {
	entity := generateEdDSAEntity(t)
	message := encryptTestMessage(t, []*openpgp.Entity{entity}, []*openpgp.Entity{entity}, testPlaintext)

	decHandle, err := PGP().Decryption().
		DecryptionKey(privateTestKey(t, entity)).
		VerificationKey(publicTestKey(t, entity)).
		New()
	if err != nil {
		t.Fatal(err)
	}
	result, err := decHandle.Decrypt(message, Bytes)
	if err != nil {
		t.Fatal("Expected no error while decrypting, got:", err)
	}
	assert.Exactly(t, testPlaintext, result.Plaintext)
	assert.Exactly(t, Valid, result.Verification)
}

func TestDecryptBitFlippedCiphertext(t *testing.T) {
	entity := generateRSAEntity(t)
	message := encryptTestMessage(t, []*openpgp.Entity{entity}, nil, testPlaintext)

	// The integrity protected packet sits at the end of the message; its
	// last bytes are the encrypted detection code.
	flipped := append([]byte{}, message...)
	flipped[len(flipped)-1] ^= 0x01

	decHandle, err := PGP().Decryption().DecryptionKey(privateTestKey(t, entity)).New()
	if err != nil {
		t.Fatal(err)
	}
	_, err = decHandle.Decrypt(flipped, Bytes)
	var integrity pgperrors.IntegrityError
	assert.ErrorAs(t, err, &integrity)

	unsafeHandle, err := PGP().Decryption().
		DecryptionKey(privateTestKey(t, entity)).
		InsecureAllowUnauthenticatedPlaintext().
		New()
	if err != nil {
		t.Fatal(err)
	}
	result, err := unsafeHandle.Decrypt(flipped, Bytes)
	if err != nil {
		t.Fatal("Expected no error on the diagnostics path, got:", err)
	}
	assert.False(t, result.IntegrityOK)
	assert.Exactly(t, testPlaintext, result.Plaintext, "the flip hit the detection code, not the payload")
}

func TestDecryptWrongRecipient(t *testing.T) {
	entity := generateRSAEntity(t)
	stranger := generateRSAEntity(t)
	message := encryptTestMessage(t, []*openpgp.Entity{entity}, nil, testPlaintext)

	decHandle, err := PGP().Decryption().DecryptionKey(privateTestKey(t, stranger)).New()
	if err != nil {
		t.Fatal(err)
	}
	_, err = decHandle.Decrypt(message, Bytes)
	var skErr pgperrors.SessionKeyError
	assert.ErrorAs(t, err, &skErr)
}

func TestDecryptSessionKeyThenData(t *testing.T) {
	entity := generateRSAEntity(t)
	var keyPackets, dataPacket bytes.Buffer
	writer, err := openpgp.EncryptWithParams(&dataPacket, []*openpgp.Entity{entity}, nil, &openpgp.EncryptParams{
		KeyWriter: &keyPackets,
	})
	if err != nil {
		t.Fatal("Expected no error while encrypting, got:", err)
	}
	if _, err := writer.Write(testPlaintext); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	keyHandle, err := PGP().Decryption().DecryptionKey(privateTestKey(t, entity)).New()
	if err != nil {
		t.Fatal(err)
	}
	sessionKey, err := keyHandle.DecryptSessionKey(keyPackets.Bytes(), Bytes)
	if err != nil {
		t.Fatal("Expected no error while decrypting session key, got:", err)
	}
	defer sessionKey.Clear()
	cf, err := sessionKey.GetCipherFunc()
	if err != nil {
		t.Fatal(err)
	}
	assert.Len(t, sessionKey.Key, cf.KeySize())

	dataHandle, err := PGP().Decryption().SessionKey(sessionKey).New()
	if err != nil {
		t.Fatal(err)
	}
	result, err := dataHandle.Decrypt(dataPacket.Bytes(), Bytes)
	if err != nil {
		t.Fatal("Expected no error while decrypting with session key, got:", err)
	}
	assert.Exactly(t, testPlaintext, result.Plaintext)
}

// writePKESKv3 serializes a version 3 public key encrypted session key
// packet around an already encrypted RSA block.
func writePKESKv3(keyID uint64, ciphertext []byte) []byte {
	bitLen := (len(ciphertext)-1)*8 + 8
	for mask := byte(0x80); mask > 0 && ciphertext[0]&mask == 0; mask >>= 1 {
		bitLen--
	}
	body := []byte{3}
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], keyID)
	body = append(body, id[:]...)
	body = append(body, 1) // RSA
	body = append(body, byte(bitLen>>8), byte(bitLen))
	body = append(body, ciphertext...)

	out := []byte{0xc1}
	switch {
	case len(body) < 192:
		out = append(out, byte(len(body)))
	default:
		out = append(out, byte((len(body)-192)>>8+192), byte(len(body)-192))
	}
	return append(out, body...)
}

func TestDecryptSessionKeyBadChecksum(t *testing.T) {
	entity := generateRSAEntity(t)
	sub := entity.Subkeys[0]
	rsaPub, ok := sub.PublicKey.PublicKey.(*rsa.PublicKey)
	if !ok {
		t.Fatal("expected an RSA encryption subkey")
	}

	// Well-formed EME-PKCS1 block carrying a session key whose two-byte
	// checksum is deliberately off by one.
	sessionKey := make([]byte, 16)
	if _, err := rand.Read(sessionKey); err != nil {
		t.Fatal(err)
	}
	var sum uint16
	for _, b := range sessionKey {
		sum += uint16(b)
	}
	block := []byte{7} // AES-128
	block = append(block, sessionKey...)
	block = append(block, byte((sum+1)>>8), byte(sum+1))
	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, rsaPub, block)
	if err != nil {
		t.Fatal(err)
	}

	decHandle, err := PGP().Decryption().DecryptionKey(privateTestKey(t, entity)).New()
	if err != nil {
		t.Fatal(err)
	}
	_, err = decHandle.DecryptSessionKey(writePKESKv3(sub.PublicKey.KeyId, ciphertext), Bytes)
	var skErr pgperrors.SessionKeyError
	assert.ErrorAs(t, err, &skErr)
}

func TestDecryptMalformedMessage(t *testing.T) {
	entity := generateRSAEntity(t)
	decHandle, err := PGP().Decryption().DecryptionKey(privateTestKey(t, entity)).New()
	if err != nil {
		t.Fatal(err)
	}

	_, err = decHandle.Decrypt([]byte{0x00, 0x01}, Bytes)
	var malformed pgperrors.MalformedPacketError
	assert.ErrorAs(t, err, &malformed)

	var keyPackets, dataPacket bytes.Buffer
	writer, err := openpgp.EncryptWithParams(&dataPacket, []*openpgp.Entity{entity}, nil, &openpgp.EncryptParams{
		KeyWriter: &keyPackets,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	// Session key packets without a data packet are not a message.
	_, err = decHandle.Decrypt(keyPackets.Bytes(), Bytes)
	assert.ErrorAs(t, err, &malformed)
}

func TestDecryptNoConfiguration(t *testing.T) {
	_, err := PGP().Decryption().New()
	assert.Error(t, err)
}

