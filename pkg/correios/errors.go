package correios

import (
	"errors"
	"fmt"
)

// CarrierError represents a failed call to the Correios API. Message holds
// the carrier's structured error text when the response carried one,
// otherwise the transport's own message.
type CarrierError struct {
	Endpoint   string
	Code       string
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *CarrierError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("correios %s (%s): %s: %v", e.Endpoint, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("correios %s (%s): %s", e.Endpoint, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CarrierError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for CarrierError.
func (e *CarrierError) Is(target error) bool {
	t, ok := target.(*CarrierError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewCarrierError creates a new CarrierError.
func NewCarrierError(endpoint, code, message string) *CarrierError {
	return &CarrierError{
		Endpoint: endpoint,
		Code:     code,
		Message:  message,
	}
}

// WithCause adds a cause to the error.
func (e *CarrierError) WithCause(err error) *CarrierError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *CarrierError) WithStatusCode(code int) *CarrierError {
	e.StatusCode = code
	return e
}

// Sentinel errors for the credential lifecycle.
var (
	// ErrNoContract indicates no contract document is stored for the store
	// and no explicit credentials were supplied.
	ErrNoContract = errors.New("no correios contract credentials")

	// ErrMissingCredentials indicates the supplied credentials are incomplete.
	ErrMissingCredentials = errors.New("missing correios credentials")
)
