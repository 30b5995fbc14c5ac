package constants

// Version of the library.
const Version = "1.0.0"
