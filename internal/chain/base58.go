package chain

import (
	"fmt"
	"math/big"
)

// Base58 alphabet as used throughout the Solana ecosystem (Bitcoin alphabet).
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var base58Index = func() map[byte]int64 {
	m := make(map[byte]int64, len(base58Alphabet))
	for i := 0; i < len(base58Alphabet); i++ {
		m[base58Alphabet[i]] = int64(i)
	}
	return m
}()

// encodeBase58 renders raw bytes (typically a 32-byte public key) as a
// base58 address string, with one leading '1' per leading zero byte.
func encodeBase58(data []byte) string {
	zeros := 0
	for zeros < len(data) && data[zeros] == 0 {
		zeros++
	}

	value := new(big.Int).SetBytes(data)
	base := big.NewInt(58)
	mod := new(big.Int)
	var out []byte
	for value.Sign() > 0 {
		value.DivMod(value, base, mod)
		out = append(out, base58Alphabet[mod.Int64()])
	}
	for i := 0; i < zeros; i++ {
		out = append(out, '1')
	}
	// out was built least-significant-digit first; reverse it.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// decodeBase58 parses a base58 address string back into its raw bytes,
// left-padded to expectLen with zero bytes for leading '1' characters.
func decodeBase58(s string, expectLen int) ([]byte, error) {
	value := new(big.Int)
	base := big.NewInt(58)
	for i := 0; i < len(s); i++ {
		digit, ok := base58Index[s[i]]
		if !ok {
			return nil, fmt.Errorf("invalid base58 character %q", s[i])
		}
		value.Mul(value, base)
		value.Add(value, big.NewInt(digit))
	}

	raw := value.Bytes()
	if len(raw) > expectLen {
		return nil, fmt.Errorf("base58 value decodes to %d bytes, want at most %d", len(raw), expectLen)
	}

	out := make([]byte, expectLen)
	copy(out[expectLen-len(raw):], raw)
	return out, nil
}
