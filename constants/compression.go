package constants

// OpenPGP compression algorithm identifiers.
const (
	NoCompression   int8 = 0
	ZIPCompression  int8 = 1
	ZLIBCompression int8 = 2
)
