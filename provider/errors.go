package provider

import (
	"errors"
	"fmt"
)

// ErrGatewayUnavailable is returned when every gateway host and attempt has
// been exhausted without receiving a classifiable response.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// ValidationError reports missing or malformed input detected before any
// network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidationError reports whether err is a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// TransportError wraps a connection, TLS or timeout failure for a single
// attempt. Transport errors are retried transparently and never treated as a
// decline.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure against %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DeclinedError is a terminal, user-visible decline carrying the gateway
// status code and the composed human-readable reason.
type DeclinedError struct {
	Code   int
	Reason string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("payment declined (status %d): %s", e.Code, e.Reason)
}

// IsDeclined reports whether err is a DeclinedError
func IsDeclined(err error) bool {
	var de *DeclinedError
	return errors.As(err, &de)
}
