package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKeyHelpers(t *testing.T) {
	programID := "9VWiUUHAJFzbodprd8iw82PxXe3Jg2xUEjHWj8YaPAqU"

	assert.Equal(t, programID, OnChainHashKey(programID))
	assert.Equal(t, "check_is_verified:"+programID, CheckVerifiedKey(programID))
	assert.Equal(t, "get_all_verification_info:"+programID, AllVerificationKey(programID))
	assert.Equal(t, "authority:"+programID, AuthorityKey(programID))
}

func TestCacheKeyHelpersAreNotIdempotentUnderRepeatedPrefixing(t *testing.T) {
	// Guards against the double-prefixing bug where a caller passes an
	// already-computed key back into a Set* helper that re-applies the
	// prefix: the *Key functions themselves must only ever add their
	// prefix once per call, so calling them directly on a raw program id
	// is the only correct usage.
	programID := "prog123"
	key := CheckVerifiedKey(programID)
	assert.NotEqual(t, CheckVerifiedKey(key), key, "prefixing an already-prefixed key must change it, proving callers must not double-prefix")
}
