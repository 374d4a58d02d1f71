package apierrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:        http.StatusBadRequest,
		CodeNotFound:          http.StatusNotFound,
		CodeUnauthorized:      http.StatusUnauthorized,
		CodeForbidden:         http.StatusForbidden,
		CodeInternal:          http.StatusInternalServerError,
		CodeConflict:          http.StatusConflict,
		CodePlanLimitExceeded: http.StatusBadRequest,
		CodeNoSubscription:    http.StatusBadRequest,
		CodeTooManyRequests:   http.StatusTooManyRequests,
	}
	for code, want := range cases {
		assert.Equal(t, want, New(code, "x").Status(), "code %s", code)
	}
}

func TestDefaultMessages(t *testing.T) {
	assert.Equal(t, "Validation error", Validation("").Error())
	assert.Equal(t, "Resource not found", NotFound("").Error())
	assert.Equal(t, "Unauthorized", Unauthorized("").Error())
	assert.Equal(t, "Forbidden", Forbidden("").Error())
	assert.Equal(t, "Conflict error", Conflict("").Error())
	assert.Equal(t, "Internal server error", Internal("", nil).Error())
}

func TestInternalWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("Failed to load diagram", cause)

	assert.Equal(t, "Failed to load diagram", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestFromErrPassesThroughAPIErrors(t *testing.T) {
	original := NotFound("Diagram not found")
	wrapped := fmt.Errorf("handler: %w", original)

	got := FromErr(wrapped)
	require.Equal(t, CodeNotFound, got.Code)
	assert.Equal(t, "Diagram not found", got.Message)
}

func TestFromErrWrapsUnknownErrors(t *testing.T) {
	got := FromErr(errors.New("boom"))
	assert.Equal(t, CodeInternal, got.Code)
	assert.ErrorContains(t, got.Cause, "boom")
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", Forbidden("nope"))
	assert.True(t, IsCode(err, CodeForbidden))
	assert.False(t, IsCode(err, CodeNotFound))
	assert.False(t, IsCode(errors.New("plain"), CodeForbidden))
}
