package httpclient

import (
	"errors"
	"fmt"
)

// ErrorType identifies the classification of a failed attempt.
type ErrorType int

const (
	// TransportFailure covers network-level failures and malformed or
	// interrupted responses: no usable HTTP response exists.
	TransportFailure ErrorType = iota
	// HTTPClientError is an HTTP 4xx response.
	HTTPClientError
	// HTTPServerError is an HTTP 5xx response.
	HTTPServerError
	// BusinessRejection is a well-formed 2xx response whose body reports
	// an exchange-level error.
	BusinessRejection
	// ValidationFailure is a malformed Operation, caught before any
	// attempt is made.
	ValidationFailure
)

// String returns the error type name for logs and messages.
func (t ErrorType) String() string {
	switch t {
	case TransportFailure:
		return "transport_failure"
	case HTTPClientError:
		return "http_client_error"
	case HTTPServerError:
		return "http_server_error"
	case BusinessRejection:
		return "business_rejection"
	case ValidationFailure:
		return "validation_failure"
	default:
		return "unknown"
	}
}

// ClientError is implemented by every classified outcome error.
type ClientError interface {
	error
	Type() ErrorType
}

// maxBodyInError caps response body bytes embedded in error messages.
const maxBodyInError = 256

func truncateBody(body []byte) string {
	if len(body) > maxBodyInError {
		return string(body[:maxBodyInError]) + "..."
	}
	return string(body)
}

// TransportError wraps a network-level failure.
type TransportError struct {
	message string
	cause   error
}

// NewTransportError creates a TransportFailure outcome wrapping cause.
func NewTransportError(message string, cause error) *TransportError {
	return &TransportError{message: message, cause: cause}
}

func (e *TransportError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("transport failure: %s: %v", e.message, e.cause)
	}
	return fmt.Sprintf("transport failure: %s", e.message)
}

// Type returns TransportFailure.
func (e *TransportError) Type() ErrorType { return TransportFailure }

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error { return e.cause }

// HTTPError is a 4xx or 5xx HTTP response.
type HTTPError struct {
	status int
	body   []byte
}

// NewHTTPError creates an HTTP status outcome. The classification into
// client or server error follows from the status code.
func NewHTTPError(status int, body []byte) *HTTPError {
	return &HTTPError{status: status, body: body}
}

func (e *HTTPError) Error() string {
	if len(e.body) == 0 {
		return fmt.Sprintf("HTTP error %d", e.status)
	}
	return fmt.Sprintf("HTTP error %d: %s", e.status, truncateBody(e.body))
}

// Type returns HTTPServerError for 5xx statuses, HTTPClientError otherwise.
func (e *HTTPError) Type() ErrorType {
	if e.status >= 500 {
		return HTTPServerError
	}
	return HTTPClientError
}

// StatusCode returns the HTTP status of the response.
func (e *HTTPError) StatusCode() int { return e.status }

// Body returns the raw response body.
func (e *HTTPError) Body() []byte { return e.body }

// RejectionError is an exchange-reported error inside a successful HTTP
// response. It is never retried: the exchange received and rejected the
// request.
type RejectionError struct {
	code    string
	message string
	body    []byte
	cause   error
}

// NewRejectionError creates a BusinessRejection outcome.
func NewRejectionError(code, message string, body []byte) *RejectionError {
	return &RejectionError{code: code, message: message, body: body}
}

func (e *RejectionError) Error() string {
	if e.code != "" {
		return fmt.Sprintf("business rejection (code %s): %s", e.code, e.message)
	}
	return fmt.Sprintf("business rejection: %s", e.message)
}

// Type returns BusinessRejection.
func (e *RejectionError) Type() ErrorType { return BusinessRejection }

// Code returns the exchange-reported error code, if any.
func (e *RejectionError) Code() string { return e.code }

// Body returns the raw response body that carried the rejection.
func (e *RejectionError) Body() []byte { return e.body }

// Unwrap returns the caller's original check error, if the rejection was
// wrapped from one.
func (e *RejectionError) Unwrap() error { return e.cause }

// ValidationError reports a malformed Operation.
type ValidationError struct {
	field   string
	message string
}

// NewValidationError creates a ValidationFailure for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{field: field, message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s %s", e.field, e.message)
}

// Type returns ValidationFailure.
func (e *ValidationError) Type() ErrorType { return ValidationFailure }

// Field returns the offending Operation field.
func (e *ValidationError) Field() string { return e.field }

// IsErrorType reports whether err is a ClientError of the given type.
func IsErrorType(err error, t ErrorType) bool {
	var cerr ClientError
	if !errors.As(err, &cerr) {
		return false
	}
	return cerr.Type() == t
}

// IsHTTPStatusError reports whether err is an HTTPError with the given
// status code.
func IsHTTPStatusError(err error, status int) bool {
	var herr *HTTPError
	if !errors.As(err, &herr) {
		return false
	}
	return herr.StatusCode() == status
}

// Retryable reports whether an outcome belongs to the transport/protocol
// failure family that may be retried for idempotent operations.
func Retryable(err error) bool {
	var cerr ClientError
	if !errors.As(err, &cerr) {
		return false
	}
	switch cerr.Type() {
	case TransportFailure, HTTPServerError:
		return true
	default:
		return false
	}
}

// DispatchReason distinguishes why a dispatch gave up.
type DispatchReason int

const (
	// ReasonRefused means the outcome was not eligible for retry (wrong
	// outcome kind, or a non-idempotent operation).
	ReasonRefused DispatchReason = iota
	// ReasonExhausted means the outcome was retryable but the attempt
	// budget was spent.
	ReasonExhausted
)

func (r DispatchReason) String() string {
	if r == ReasonExhausted {
		return "exhausted"
	}
	return "refused"
}

// DispatchError is the terminal error of a failed dispatch. It surfaces
// the last classified outcome unchanged and records every per-attempt
// error in order of occurrence.
type DispatchError struct {
	Reason   DispatchReason
	Attempts int
	Cause    ClientError
	History  []error
}

func (e *DispatchError) Error() string {
	if e.Reason == ReasonExhausted {
		return fmt.Sprintf("retry budget of %d attempt(s) exhausted: %v", e.Attempts, e.Cause)
	}
	return fmt.Sprintf("non-retryable outcome on attempt %d: %v", e.Attempts, e.Cause)
}

// Unwrap returns the last classified outcome, so errors.Is/As reach the
// underlying classification.
func (e *DispatchError) Unwrap() error { return e.Cause }

// IsExhausted reports whether err is a dispatch failure caused by an
// exhausted retry budget.
func IsExhausted(err error) bool {
	var derr *DispatchError
	return errors.As(err, &derr) && derr.Reason == ReasonExhausted
}

// IsRefused reports whether err is a dispatch failure the core refused
// to retry.
func IsRefused(err error) bool {
	var derr *DispatchError
	return errors.As(err, &derr) && derr.Reason == ReasonRefused
}
