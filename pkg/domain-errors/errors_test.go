package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeNotFound, "record not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("matches wrapped code", func(t *testing.T) {
		inner := New(CodeConfigLocked, "assessment locked")
		err := Wrap(inner, CodeInternal, "update failed")
		assert.True(t, HasCode(err, CodeConfigLocked))
		assert.True(t, HasCode(err, CodeInternal))
	})

	t.Run("survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("context: %w", New(CodeImmutable, "x"))
		assert.True(t, HasCode(err, CodeImmutable))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestDeny(t *testing.T) {
	err := Deny("STATUS_LOCKED", "assessment attempts are locked")
	assert.True(t, HasCode(err, CodeAccessDenied))
	assert.Equal(t, "STATUS_LOCKED", ReasonOf(err))
	assert.Contains(t, err.Error(), "STATUS_LOCKED")

	wrapped := fmt.Errorf("submit: %w", err)
	assert.Equal(t, "STATUS_LOCKED", ReasonOf(wrapped))
	assert.Equal(t, "", ReasonOf(New(CodeNotFound, "missing")))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternal, "ignored"))

	cause := errors.New("connection reset")
	err := Wrap(cause, CodeUnavailable, "store unavailable")
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "store unavailable: connection reset", err.Error())
}
