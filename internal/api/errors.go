package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrClientBuild means a request could not be constructed at all, e.g. the
// session lacks routing facts or the base URL is malformed.
var ErrClientBuild = errors.New("failed to build riot client request")

// NetworkError represents a transport failure talking to the game API
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StatusError represents a non-2xx response
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error: %s: %d", e.URL, e.Code)
}

// DecodeError represents a body that did not match the expected shape. The
// game API answers with a different document when the match left that phase.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether polling again later may succeed.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrClientBuild) {
		return false
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= http.StatusInternalServerError
	}
	return false
}

// IsStatus reports whether err carries the given HTTP status code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == code
}
