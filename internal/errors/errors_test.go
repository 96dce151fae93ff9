package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"email taken", ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
		{"invalid credentials", ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"unauthenticated", ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"not found or forbidden", ErrNotFoundOrForbidden, http.StatusNotFound, "NOT_FOUND"},
		{"cover lookup", ErrCoverLookup, http.StatusBadGateway, "COVER_LOOKUP_FAILED"},
		{"wrapped domain error", fmt.Errorf("list books: %w", ErrNotFoundOrForbidden), http.StatusNotFound, "NOT_FOUND"},
		{"unknown error", errors.New("connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, got.StatusCode)
			assert.Equal(t, tt.wantCode, got.Code)
		})
	}
}

// Whatever the cause, an unrecognized error never leaks its text into
// the response message.
func TestMapErrorToHTTP_UnknownErrorGetsSafeMessage(t *testing.T) {
	got := MapErrorToHTTP(errors.New("dial tcp 10.0.0.5:5432: connect: connection refused"))
	assert.Equal(t, "internal server error", got.Message)
}
