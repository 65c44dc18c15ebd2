package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase58RoundTrip(t *testing.T) {
	cases := [][]byte{
		{0x00, 0x01, 0x02, 0x03},
		{0xff, 0xff, 0xff, 0xff},
		make([]byte, 32),
	}
	cases[2][31] = 0x7f

	for _, raw := range cases {
		encoded := encodeBase58(raw)
		decoded, err := decodeBase58(encoded, len(raw))
		require.NoError(t, err)
		assert.Equal(t, raw, decoded)
	}
}

func TestEncodeBase58LeadingZeros(t *testing.T) {
	raw := []byte{0x00, 0x00, 0x01}
	encoded := encodeBase58(raw)
	assert.Equal(t, "11", encoded[:2], "one leading '1' per leading zero byte")
}

func TestDecodeBase58InvalidCharacter(t *testing.T) {
	_, err := decodeBase58("0OIl", 4)
	assert.Error(t, err)
}

func TestDecodeBase58TooLong(t *testing.T) {
	raw := make([]byte, 32)
	raw[0] = 0x7f
	encoded := encodeBase58(raw)
	_, err := decodeBase58(encoded, 4)
	assert.Error(t, err)
}
