package httpclient

import (
	"fmt"
	"net/http"

	ierr "github.com/drivekit/billing/internal/errors"
)

// Error represents an HTTP client error carrying the downstream status
// code and raw response body.
type Error struct {
	StatusCode int
	Response   []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("http client error: status %d", e.StatusCode)
}

// Is lets httpclient errors match the generic HTTP client kind, and the
// conflict kind when the downstream answered 409.
func (e *Error) Is(target error) bool {
	if target == ierr.ErrHTTPClient {
		return true
	}
	if target == ierr.ErrAlreadyExists && e.StatusCode == http.StatusConflict {
		return true
	}
	if target == ierr.ErrNotFound && e.StatusCode == http.StatusNotFound {
		return true
	}
	return false
}

// NewError creates a new HTTP client error
func NewError(statusCode int, response []byte) *Error {
	return &Error{
		StatusCode: statusCode,
		Response:   response,
	}
}

// IsHTTPError checks if an error is an HTTP client error
func IsHTTPError(err error) (*Error, bool) {
	var httpErr *Error
	if ierr.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
