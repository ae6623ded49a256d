package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", RateLimited("cooldown active"))
	assert.Equal(t, KindRateLimited, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindRateLimited))

	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, KindInternal))
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("cause")
	err := Wrap(KindValidation, "bad input", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "bad input")
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Kind]int{
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindInvalidState: http.StatusConflict,
		KindValidation:   http.StatusBadRequest,
		KindRateLimited:  http.StatusTooManyRequests,
		KindForbidden:    http.StatusForbidden,
		KindUnauthorized: http.StatusUnauthorized,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, status := range tests {
		assert.Equal(t, status, HTTPStatus(kind), kind)
	}
}
