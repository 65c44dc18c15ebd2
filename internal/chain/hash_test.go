package chain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLastNonemptyLine(t *testing.T) {
	t.Run("trailing blank lines ignored", func(t *testing.T) {
		assert.Equal(t, "abc123", lastNonemptyLine("header\nabc123\n\n"))
	})

	t.Run("single line", func(t *testing.T) {
		assert.Equal(t, "abc123", lastNonemptyLine("abc123"))
	})

	t.Run("all blank", func(t *testing.T) {
		assert.Equal(t, "", lastNonemptyLine("\n\n  \n"))
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		assert.Equal(t, "abc123", lastNonemptyLine("abc123   \n"))
	})
}

func TestIsTransient(t *testing.T) {
	t.Run("matches rate limit", func(t *testing.T) {
		assert.True(t, isTransient(errors.New("rate limited, try again")))
	})

	t.Run("matches 429", func(t *testing.T) {
		assert.True(t, isTransient(errors.New("http 429 too many requests")))
	})

	t.Run("matches timeout case-insensitively", func(t *testing.T) {
		assert.True(t, isTransient(errors.New("upstream TIMEOUT")))
	})

	t.Run("non-transient error", func(t *testing.T) {
		assert.False(t, isTransient(errors.New("invalid program id")))
	})

	t.Run("nil error", func(t *testing.T) {
		assert.False(t, isTransient(nil))
	})
}
