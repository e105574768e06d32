package demostf

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the demos.tf client.
var (
	// ErrNotFound indicates the requested demo or user does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized indicates a missing or rejected access key.
	ErrUnauthorized = errors.New("unauthorized: invalid or missing access key")

	// ErrInvalidPage is returned for page numbers below 1, before any
	// request is made. Pages start counting at 1.
	ErrInvalidPage = errors.New("invalid page requested")

	// ErrInvalidBaseURL indicates the configured base URL could not be parsed.
	ErrInvalidBaseURL = errors.New("invalid base url")

	// ErrHashMismatch indicates a downloaded demo did not match its recorded
	// hash, or the server rejected a hash on SetURL.
	ErrHashMismatch = errors.New("demo hash mismatch")

	// ErrBodyConsumed indicates an UploadRequest body was used more than once.
	ErrBodyConsumed = errors.New("upload body already consumed")
)

// StatusError is returned when the API answers with a non-success status.
// It matches ErrNotFound, ErrUnauthorized and ErrHashMismatch through
// errors.Is based on the status code.
type StatusError struct {
	// Op is the operation that failed, e.g. "get demo".
	Op string
	// Code is the HTTP status code.
	Code int
	// Body is the raw response body, truncated for very large responses.
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("demostf: %s: unexpected status %d", e.Op, e.Code)
}

// Is reports whether the status code narrows to one of the sentinel errors.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
	case ErrHashMismatch:
		return e.Code == http.StatusPreconditionFailed
	}
	return false
}

// IsNotFound checks if the error indicates a not found response.
func (e *StatusError) IsNotFound() bool {
	return e.Code == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure.
func (e *StatusError) IsUnauthorized() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
}

// TransportError is returned when the network exchange itself failed.
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("demostf: %s: request failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying transport failure.
func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError is returned when a success response body does not match the
// expected shape.
type DecodeError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("demostf: %s: invalid response: %v", e.Op, e.Err)
}

// Unwrap returns the underlying decode failure.
func (e *DecodeError) Unwrap() error { return e.Err }

// ParseError is returned when a textual steam id matches no known encoding.
type ParseError struct {
	Input string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("demostf: unrecognized steam id %q", e.Input)
}
