package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrUpstreamForbidden, "custom"))

	got := FromError(wrapped)

	assert.Equal(t, "UPSTREAM_FORBIDDEN", got.Code)
	assert.Equal(t, http.StatusForbidden, got.Status)
	assert.Equal(t, "custom", got.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	got := FromError(errors.New("boom"))

	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.EqualError(t, got, "internal server error: boom")
}

func TestIsComparesCodes(t *testing.T) {
	err := Wrap(errors.New("status 401"), ErrUpstreamUnauthorized.Code, ErrUpstreamUnauthorized.Status, "expired")

	assert.ErrorIs(t, err, ErrUpstreamUnauthorized)
	assert.NotErrorIs(t, err, ErrUpstreamForbidden)
	assert.Nil(t, FromError(nil))
}
