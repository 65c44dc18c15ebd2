package store

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/apierr"
)

func TestWrapErr(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, wrapErr(nil))
	})

	t.Run("no rows maps to not-found", func(t *testing.T) {
		err := wrapErr(pgx.ErrNoRows)
		assert.True(t, apierr.IsNotFound(err))
	})

	t.Run("other errors map to transport", func(t *testing.T) {
		err := wrapErr(errors.New("connection reset"))
		assert.False(t, apierr.IsNotFound(err))
	})
}

func TestStoreSatisfiesInterface(t *testing.T) {
	var _ Store = (*store)(nil)
}
