package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code   ErrorCode
		status int
	}{
		{ErrCodeValidationFailed, http.StatusBadRequest},
		{ErrCodeInvalidFormat, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeUserNotFound, http.StatusNotFound},
		{ErrCodeUserAlreadyExists, http.StatusConflict},
		{ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{ErrCodeUpstreamUnavailable, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.status, MapErrorCodeToHTTPStatus(tt.code))
		})
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("create user: %w", UpstreamUnavailable(cause))

	assert.True(t, IsCode(err, ErrCodeUpstreamUnavailable))
	assert.Equal(t, ErrCodeUpstreamUnavailable, GetCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrap_NilError(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nothing"))
}

func TestGetCode_PlainError(t *testing.T) {
	err := errors.New("plain")
	assert.Equal(t, ErrCodeInternal, GetCode(err))
	assert.Nil(t, GetDetails(err))
	assert.False(t, IsCode(err, ErrCodeInternal))
}

func TestResponse_HidesCause(t *testing.T) {
	err := UpstreamUnavailable(errors.New("keycloak: POST /admin/realms/test/users: unexpected status 502"))

	raw, jerr := json.Marshal(err.Response())
	require.NoError(t, jerr)

	assert.JSONEq(t, `{"code":"UPSTREAM_UNAVAILABLE","message":"identity provider request failed"}`, string(raw))
}

func TestResponse_ValidationDetails(t *testing.T) {
	err := ValidationFailed(map[string]interface{}{
		"email":    "must be a valid email address",
		"lastName": "must not be blank",
	})

	raw, jerr := json.Marshal(err.Response())
	require.NoError(t, jerr)

	assert.JSONEq(t, `{
		"code": "VALIDATION_FAILED",
		"message": "validation failed",
		"details": {"email": "must be a valid email address", "lastName": "must not be blank"}
	}`, string(raw))
}

func TestInvalidFormat(t *testing.T) {
	err := InvalidFormat("id", "must be a UUID")

	assert.Equal(t, http.StatusBadRequest, err.HTTPStatusCode())
	assert.Equal(t, "invalid id: must be a UUID", err.Message)
	assert.Equal(t, map[string]interface{}{"id": "must be a UUID"}, err.Details)
}
