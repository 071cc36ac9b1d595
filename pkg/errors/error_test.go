package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeMalformedTick, "tick rejected")
	assert.Equal(t, ErrCodeMalformedTick, err.Code)
	assert.Equal(t, "[105] tick rejected", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrCodeQueryFailed, "failed to list signals", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGetCode(t *testing.T) {
	err := Newf(ErrCodeUnmappedSignalShape, "no data model for %q", "bogus")
	assert.Equal(t, ErrCodeUnmappedSignalShape, GetCode(err))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, ErrCodeUnmappedSignalShape, GetCode(wrapped))

	assert.Equal(t, ErrCodeUnknown, GetCode(fmt.Errorf("plain")))
}

func TestHasCode(t *testing.T) {
	err := New(ErrCodePredicateNotFound, "no predicate")
	assert.True(t, HasCode(err, ErrCodePredicateNotFound))
	assert.False(t, HasCode(err, ErrCodeDataNotFound))
}
