package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidChainAddress(t *testing.T) {
	t.Run("well-formed address", func(t *testing.T) {
		assert.True(t, isValidChainAddress("9VWiUUHAJFzbodprd8iw82PxXe3Jg2xUEjHWj8YaPAqU"))
	})

	t.Run("too short", func(t *testing.T) {
		assert.False(t, isValidChainAddress("abc"))
	})

	t.Run("contains invalid base58 characters", func(t *testing.T) {
		assert.False(t, isValidChainAddress("0OIlOIlOIlOIlOIlOIlOIlOIlOIlOIlOIl"))
	})

	t.Run("empty string", func(t *testing.T) {
		assert.False(t, isValidChainAddress(""))
	})

	t.Run("too long", func(t *testing.T) {
		assert.False(t, isValidChainAddress("9VWiUUHAJFzbodprd8iw82PxXe3Jg2xUEjHWj8YaPAqU9VWiUUHAJFzbodprd8iw82PxXe3Jg2xUEjHWj8YaPAqU"))
	})
}
