package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	clone := Clone(ErrSessionExpired, "custom message")
	assert.ErrorIs(t, clone, ErrSessionExpired)
	assert.NotErrorIs(t, clone, ErrRefreshExpired)

	wrapped := Wrap(errors.New("boom"), ErrNetworkUnavailable.Code, ErrNetworkUnavailable.Status, "request failed")
	assert.ErrorIs(t, wrapped, ErrNetworkUnavailable)

	// A fmt wrap around a typed error still matches.
	twice := fmt.Errorf("calling backend: %w", wrapped)
	assert.ErrorIs(t, twice, ErrNetworkUnavailable)
}

func TestCloneOverridesMessageOnly(t *testing.T) {
	clone := Clone(ErrClassFull, "yoga is full")
	assert.Equal(t, ErrClassFull.Code, clone.Code)
	assert.Equal(t, ErrClassFull.Status, clone.Status)
	assert.Equal(t, "yoga is full", clone.Message)

	// Empty override keeps the canonical message and never mutates the original.
	same := Clone(ErrClassFull, "")
	assert.Equal(t, ErrClassFull.Message, same.Message)
	assert.Equal(t, "class is at capacity", ErrClassFull.Message)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, ErrStorageUnavailable.Code, ErrStorageUnavailable.Status, "write failed")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "write failed")
	assert.Contains(t, err.Error(), "disk full")
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	typed := FromError(Clone(ErrNotFound, ""))
	assert.Equal(t, ErrNotFound.Code, typed.Code)

	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.Status)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "CLASS_FULL", CodeOf(Clone(ErrClassFull, "")))
	assert.Equal(t, "", CodeOf(errors.New("untyped")))
	assert.Equal(t, "SESSION_EXPIRED", CodeOf(fmt.Errorf("wrapped: %w", ErrSessionExpired)))
}
