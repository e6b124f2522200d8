package httpclient

import (
	goerrors "errors"

	ierr "github.com/flexprice/ratelimiter/internal/errors"
)

// Error represents an HTTP client error carrying the upstream response
type Error struct {
	err        error
	StatusCode int
	Response   []byte
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Error() string {
	return e.err.Error()
}

// NewError creates a new HTTP client error marked with ierr.ErrHTTPClient
func NewError(statusCode int, response []byte) *Error {
	return &Error{
		err: ierr.WithError(goerrors.New("http client error")).
			WithHintf("upstream responded with status %d", statusCode).
			Mark(ierr.ErrHTTPClient),
		StatusCode: statusCode,
		Response:   response,
	}
}

// IsHTTPError checks if an error is an HTTP client error
func IsHTTPError(err error) (*Error, bool) {
	var httpErr *Error
	if goerrors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
