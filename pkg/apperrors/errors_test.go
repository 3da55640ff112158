package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		code int
	}{
		{Validation("bad", nil), http.StatusBadRequest},
		{InvalidCredentials(), http.StatusUnauthorized},
		{Unauthorized("no token"), http.StatusUnauthorized},
		{AccountDisabled(), http.StatusForbidden},
		{Forbidden("nope"), http.StatusForbidden},
		{NotFound("gone"), http.StatusNotFound},
		{Conflict("dup"), http.StatusConflict},
		{Internal(errors.New("db down")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", ErrConflict), http.StatusConflict},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, Status(tt.err), tt.err.Error())
	}
}

func TestInternal_KeepsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("db down")
	err := Internal(cause)

	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Internal server error", err.Message)
}
