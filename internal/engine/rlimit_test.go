package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestWithAddressSpaceLimitRunsFnAndRestoresLimit(t *testing.T) {
	var before unix.Rlimit
	require.NoError(t, unix.Getrlimit(unix.RLIMIT_AS, &before))

	called := false
	err := withAddressSpaceLimit(func() error {
		called = true
		var during unix.Rlimit
		require.NoError(t, unix.Getrlimit(unix.RLIMIT_AS, &during))
		assert.LessOrEqual(t, during.Cur, uint64(addressSpaceLimitBytes))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	var after unix.Rlimit
	require.NoError(t, unix.Getrlimit(unix.RLIMIT_AS, &after))
	assert.Equal(t, before.Cur, after.Cur)
}

func TestWithAddressSpaceLimitPropagatesFnError(t *testing.T) {
	sentinel := errors.New("build failed")
	err := withAddressSpaceLimit(func() error {
		return sentinel
	})
	assert.Equal(t, sentinel, err)
}

func TestWithAddressSpaceLimitRestoresOnPanic(t *testing.T) {
	var before unix.Rlimit
	assert.NoError(t, unix.Getrlimit(unix.RLIMIT_AS, &before))

	func() {
		defer func() { _ = recover() }()
		_ = withAddressSpaceLimit(func() error {
			panic("builder crashed")
		})
	}()

	var after unix.Rlimit
	assert.NoError(t, unix.Getrlimit(unix.RLIMIT_AS, &after))
	assert.Equal(t, before.Cur, after.Cur)
}
