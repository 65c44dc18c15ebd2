package resolver

import "regexp"

// chainAddressPattern matches the base58 alphabet Solana addresses use, at
// the length range real pubkeys encode to (32 raw bytes is 32-44 base58
// characters).
var chainAddressPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// isValidChainAddress reports whether s looks like a well-formed chain
// address. This is a syntactic check only; it does not resolve the account.
func isValidChainAddress(s string) bool {
	return chainAddressPattern.MatchString(s)
}
