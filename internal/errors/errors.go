package errors

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// Sentinel errors used as Mark() references throughout the module.
// Handlers and the error middleware match against these with errors.Is,
// never against error strings.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrValidation        = errors.New("validation error")
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrDependencyMissing = errors.New("dependency missing")
	ErrHTTPClient        = errors.New("http client error")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrConfiguration     = errors.New("configuration error")
)

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

// IsDependencyMissing checks if an error is a dependency missing error
func IsDependencyMissing(err error) bool {
	return errors.Is(err, ErrDependencyMissing)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// As exposes cockroachdb/errors.As, so callers matching a concrete
// error type (e.g. validator.ValidationErrors) don't need their own
// import of the underlying errors package.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// HTTPStatusFromErr maps a marked error to the HTTP status the API
// should respond with. Unmarked errors default to 500.
func HTTPStatusFromErr(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidOperation):
		return http.StatusBadRequest
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrDependencyMissing), errors.Is(err, ErrHTTPClient):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
