package models

// TrustedSigners is the constant ordered set of well-known operator signer
// addresses a status query without an explicit signer accepts, in addition
// to UnspecifiedSigner and the program's current on-chain authority.
// Matches the original's SIGNER_KEYS.
var TrustedSigners = []string{
	"9VWiUUhgNoRwTH5NVehYJEDwcotwYX3VgW4MChiHPAqU",
	"CyJj5ejJAUveDXnLduJbkvwjxcmWJNqCuB9DR7AExrHn",
}
