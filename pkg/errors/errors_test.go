package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsCarryMessageAndCause(t *testing.T) {
	cause := stderrors.New("boom")

	tests := []struct {
		name       string
		err        *AppError
		code       ErrorCode
		message    string
		status     int
		wantsCause bool
	}{
		{"not found", NotFound("shift", cause), ErrNotFound, "shift not found", http.StatusNotFound, true},
		{"bad request", BadRequest("invalid payload", cause), ErrBadRequest, "invalid payload", http.StatusBadRequest, true},
		{"unauthorized", Unauthorized("token expired", cause), ErrUnauthorized, "token expired", http.StatusUnauthorized, true},
		{"unauthorized default message", Unauthorized("", nil), ErrUnauthorized, "unauthorized", http.StatusUnauthorized, false},
		{"forbidden default message", Forbidden("", nil), ErrForbidden, "forbidden", http.StatusForbidden, false},
		{"conflict", Conflict("email already registered", nil), ErrConflict, "email already registered", http.StatusConflict, false},
		{"not configured", NotConfigured("missing required configuration: database.host", nil), ErrNotConfigured, "missing required configuration: database.host", http.StatusServiceUnavailable, false},
		{"timeout", Timeout("profile load timed out", cause), ErrTimeout, "profile load timed out", http.StatusGatewayTimeout, true},
		{"internal", Internal("failed to verify account status", cause), ErrInternal, "failed to verify account status", http.StatusInternalServerError, true},
		{"internal default message", Internal("", cause), ErrInternal, "internal server error", http.StatusInternalServerError, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NotNil(t, tc.err)
			assert.Equal(t, tc.code, tc.err.Code)
			assert.Equal(t, tc.message, tc.err.Message)
			assert.Equal(t, tc.status, tc.err.StatusCode())
			if tc.wantsCause {
				assert.True(t, stderrors.Is(tc.err, cause))
			} else {
				assert.Nil(t, tc.err.Unwrap())
			}
		})
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	assert.Equal(t, "failed to verify account status: connection refused",
		Internal("failed to verify account status", cause).Error())
	assert.Equal(t, "email already registered", Conflict("email already registered", nil).Error())
}

func TestPredicatesMatchWrappedErrors(t *testing.T) {
	wrapped := NotFound("provider", nil)
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsNotFound(Internal("", nil)))

	cfg := NotConfigured("database is not configured", nil)
	assert.True(t, IsNotConfigured(cfg))
	assert.False(t, IsNotConfigured(wrapped))
}
