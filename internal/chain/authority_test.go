package chain

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLoaderAccount(t *testing.T) {
	t.Run("program tag with payload", func(t *testing.T) {
		data := make([]byte, 4+pubkeyLen)
		binary.LittleEndian.PutUint32(data[:4], loaderAccountProgram)
		for i := range pubkeyLen {
			data[4+i] = byte(i)
		}

		tag, payload, err := readLoaderAccount(data)
		require.NoError(t, err)
		assert.Equal(t, loaderAccountProgram, tag)
		assert.Equal(t, pubkeyLen, len(payload))
		assert.Equal(t, byte(0), payload[0])
	})

	t.Run("too short", func(t *testing.T) {
		_, _, err := readLoaderAccount([]byte{1, 2, 3})
		assert.Error(t, err)
	})
}
