package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("email already exists")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	// Unknown-email and wrong-password both map here so login failures
	// never reveal whether an account exists.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthenticated is returned when no valid session accompanies a request.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrNotFoundOrForbidden is returned when a book does not exist or is
	// owned by someone else. The two cases are deliberately indistinguishable.
	ErrNotFoundOrForbidden = errors.New("book not found")
	// ErrCoverLookup is returned when the cover search collaborator is unreachable.
	ErrCoverLookup = errors.New("cover lookup failed")
)

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. It backs the
// central HTTP error handler: anything a handler returns un-translated
// (storage failures above all) lands here and comes out as a status
// and a safe message.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrEmailTaken):
		return NewHTTPError(http.StatusConflict, err.Error(), "EMAIL_TAKEN")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrUnauthenticated):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "UNAUTHENTICATED")
	case errors.Is(err, ErrNotFoundOrForbidden):
		return NewHTTPError(http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, ErrCoverLookup):
		return NewHTTPError(http.StatusBadGateway, err.Error(), "COVER_LOOKUP_FAILED")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
