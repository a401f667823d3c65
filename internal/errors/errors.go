package errors

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// Sentinel error kinds used across the application. Callers mark errors
// with one of these and branch with the Is* predicates instead of
// comparing concrete types.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrAlreadyExists    = errors.New("resource already exists")
	ErrValidation       = errors.New("validation error")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrPermissionDenied = errors.New("permission denied")
	ErrHTTPClient       = errors.New("http client error")
	ErrDatabase         = errors.New("database error")
	ErrSystem           = errors.New("system error")
)

const (
	ErrCodeNotFound         = "not_found"
	ErrCodeAlreadyExists    = "already_exists"
	ErrCodeValidation       = "validation_error"
	ErrCodeInvalidOperation = "invalid_operation"
	ErrCodePermissionDenied = "permission_denied"
	ErrCodeHTTPClient       = "http_client_error"
	ErrCodeDatabase         = "database_error"
	ErrCodeSystemError      = "system_error"
)

// maps error kinds to http status codes
var statusCodeMap = map[error]int{
	ErrNotFound:         http.StatusNotFound,
	ErrAlreadyExists:    http.StatusConflict,
	ErrValidation:       http.StatusBadRequest,
	ErrInvalidOperation: http.StatusBadRequest,
	ErrPermissionDenied: http.StatusForbidden,
	ErrHTTPClient:       http.StatusInternalServerError,
	ErrDatabase:         http.StatusInternalServerError,
	ErrSystem:           http.StatusInternalServerError,
}

var codeMap = map[error]string{
	ErrNotFound:         ErrCodeNotFound,
	ErrAlreadyExists:    ErrCodeAlreadyExists,
	ErrValidation:       ErrCodeValidation,
	ErrInvalidOperation: ErrCodeInvalidOperation,
	ErrPermissionDenied: ErrCodePermissionDenied,
	ErrHTTPClient:       ErrCodeHTTPClient,
	ErrDatabase:         ErrCodeDatabase,
	ErrSystem:           ErrCodeSystemError,
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsPermissionDenied checks if an error is a permission denied error
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsHTTPClient checks if an error is an http client error
func IsHTTPClient(err error) bool {
	return errors.Is(err, ErrHTTPClient)
}

// IsDatabase checks if an error is a database error
func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// CodeFromErr returns the machine-readable code of the error's kind
func CodeFromErr(err error) string {
	for e, code := range codeMap {
		if errors.Is(err, e) {
			return code
		}
	}
	return ErrCodeSystemError
}

// HTTPStatusFromErr maps an error kind to an HTTP status code
func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
