package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_DirectAndWrapped(t *testing.T) {
	err := E(ConflictError, "port %d busy", 3000)
	assert.Equal(t, ConflictError, KindOf(err))
	assert.Equal(t, "port 3000 busy", err.Error())

	wrapped := fmt.Errorf("starting stack: %w", err)
	assert.Equal(t, ConflictError, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, ConflictError))
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, UnknownError, KindOf(errors.New("plain")))
	assert.Equal(t, UnknownError, KindOf(nil))
}

func TestWrapErr_PreservesCause(t *testing.T) {
	cause := errors.New("exit status 125")
	err := WrapErr(TransientInfraError, cause, "container start failed")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "container start failed")
	assert.Contains(t, err.Error(), "exit status 125")
}
