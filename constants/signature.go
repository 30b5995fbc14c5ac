package constants

// OpenPGP signature types.
const (
	SigTypeBinary int8 = 0x00
	SigTypeText   int8 = 0x01
)

// Signature verification statuses.
const (
	SIGNATURE_OK          int = 0
	SIGNATURE_NOT_SIGNED  int = 1
	SIGNATURE_NO_VERIFIER int = 2
	SIGNATURE_FAILED      int = 3
)
