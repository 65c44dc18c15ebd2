package apierr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNotFound(t *testing.T) {
	t.Run("wrapped not-found", func(t *testing.T) {
		err := NotFound(errors.New("no rows"))
		assert.True(t, IsNotFound(err))
	})

	t.Run("wrapped transport is not not-found", func(t *testing.T) {
		err := Transport(errors.New("connection refused"))
		assert.False(t, IsNotFound(err))
	})

	t.Run("unrelated error", func(t *testing.T) {
		assert.False(t, IsNotFound(errors.New("boom")))
	})

	t.Run("string-flattened wrap loses the kind", func(t *testing.T) {
		err := NotFound(errors.New("no rows"))
		wrapped := errors.New("context: " + err.Error())
		assert.False(t, IsNotFound(wrapped))
	})
}

func TestIsClosed(t *testing.T) {
	t.Run("wrapped closed", func(t *testing.T) {
		err := Closed(errors.New("could not find program data"))
		assert.True(t, IsClosed(err))
	})

	t.Run("wrapped time limit is not closed", func(t *testing.T) {
		err := TimeLimit(errors.New("rate limited"))
		assert.False(t, IsClosed(err))
	})
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("program_id is required")
	require.Equal(t, "program_id is required", err.Error())
	assert.Equal(t, string(KindValidation), err.Code)
	assert.Equal(t, 400, err.StatusCode)
}

func TestAPIErrorWithMessage(t *testing.T) {
	derived := ErrPdaNotFound.WithMessage("no PDA for this signer")
	assert.Equal(t, "no PDA for this signer", derived.Error())
	assert.Equal(t, ErrPdaNotFound.Code, derived.Code)
	assert.Equal(t, ErrPdaNotFound.StatusCode, derived.StatusCode)
	assert.Equal(t, "could not find on-chain PDA for program", ErrPdaNotFound.Error())
}

func TestBuildErrorMessage(t *testing.T) {
	err := &BuildError{Stdout: "panic: out of memory"}
	assert.Contains(t, err.Error(), "panic: out of memory")
}

func TestStoreErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Transport(cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}
