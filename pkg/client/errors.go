package client

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for programmatic handling.
type Kind string

const (
	// KindValidation covers requests rejected before dispatch and
	// provider payloads whose required fields are missing or mistyped.
	KindValidation Kind = "validation"

	// KindAuth covers rejected or under-entitled credentials (401, 403).
	KindAuth Kind = "auth"

	// KindRateLimit covers provider-side budget rejections (429).
	KindRateLimit Kind = "rate_limit"

	// KindNetwork covers transport failures: connection errors,
	// timeouts, contexts cancelled in flight.
	KindNetwork Kind = "network"

	// KindResponse covers answers that arrived but cannot be used:
	// 404s, 5xx, unrecognized provider error codes.
	KindResponse Kind = "response"
)

// Provider error codes, preserved verbatim in Error.Code.
const (
	CodeInvalidAccessKey         = "invalid_access_key"
	CodeMissingAccessKey         = "missing_access_key"
	CodeInactiveUser             = "inactive_user"
	CodeHTTPSAccessRestricted    = "https_access_restricted"
	CodeFunctionAccessRestricted = "function_access_restricted"
	CodeInvalidAPIFunction       = "invalid_api_function"
	CodeNotFound                 = "404_not_found"
	CodeUsageLimitReached        = "usage_limit_reached"
	CodeRateLimitReached         = "rate_limit_reached"
	CodeInternalError            = "internal_error"
)

// Common errors returned by the client.
var (
	// ErrClientClosed is returned by every operation on a closed Client.
	ErrClientClosed = errors.New("client is closed")
)

// Error is the one error type for everything that can go wrong between a
// query and its result. Match on Kind for handling decisions and on Code
// when the provider's exact refusal matters.
type Error struct {
	// Kind is the classification. Always set.
	Kind Kind

	// StatusCode is the HTTP status of the failing exchange, or 0 when
	// the failure happened before or below HTTP.
	StatusCode int

	// Code is the provider's error code verbatim, when one was sent.
	Code string

	// Field names the offending query input or payload field on
	// validation errors.
	Field string

	// Message is human-readable detail; for provider errors it is the
	// provider's own message.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("marketstack %s error", e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of any error produced by this package, or the
// empty Kind for nil and foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// validationError builds a KindValidation error naming the offending field.
func validationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// networkError builds a KindNetwork error wrapping a transport failure.
func networkError(message string, err error) *Error {
	return &Error{Kind: KindNetwork, Message: message, Err: err}
}
