package armor

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var testData = []byte{0xc0, 0x01, 0x50, 0x47, 0x50, 0x0a, 0xff, 0x00}

func TestArmorUnarmorRoundTrip(t *testing.T) {
	armored, err := ArmorWithType(testData, "PGP MESSAGE")
	if err != nil {
		t.Fatal("Expected no error while armoring, got:", err)
	}
	assert.True(t, strings.HasPrefix(armored, "-----BEGIN PGP MESSAGE-----"))
	assert.Contains(t, armored, "-----END PGP MESSAGE-----")
	assert.Contains(t, armored, "Version: pgpcore")

	unarmored, err := Unarmor(armored)
	if err != nil {
		t.Fatal("Expected no error while unarmoring, got:", err)
	}
	assert.Exactly(t, testData, unarmored)
}

func TestArmorKey(t *testing.T) {
	armored, err := ArmorKey(testData)
	if err != nil {
		t.Fatal("Expected no error while armoring, got:", err)
	}
	assert.True(t, strings.HasPrefix(armored, "-----BEGIN PGP PUBLIC KEY BLOCK-----"))
}

func TestUnarmorGarbage(t *testing.T) {
	_, err := Unarmor("not armored at all")
	assert.Error(t, err)
}

func TestIsPGPArmored(t *testing.T) {
	armored, err := ArmorWithType(testData, "PGP MESSAGE")
	if err != nil {
		t.Fatal(err)
	}

	reader, isArmored := IsPGPArmored(strings.NewReader(armored))
	assert.True(t, isArmored)
	// The prefix consumed by detection must be restored.
	unarmored, err := UnarmorReader(reader)
	if err != nil {
		t.Fatal("Expected no error while unarmoring, got:", err)
	}
	var out bytes.Buffer
	if _, err := out.ReadFrom(unarmored); err != nil {
		t.Fatal(err)
	}
	assert.Exactly(t, testData, out.Bytes())

	_, isArmored = IsPGPArmored(bytes.NewReader(testData))
	assert.False(t, isArmored)

	_, isArmored = IsPGPArmored(bytes.NewReader(nil))
	assert.False(t, isArmored)
}
