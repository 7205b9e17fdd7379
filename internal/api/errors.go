package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind is the stable tag carried by every error that leaves the core.
type ErrorKind string

const (
	// KindConfig marks bad static configuration or a malformed environment value.
	KindConfig ErrorKind = "CONFIG_ERROR"
	// KindAPINotFound marks a lookup of an API name that is not configured.
	KindAPINotFound ErrorKind = "API_NOT_FOUND"
	// KindEndpointNotFound marks a lookup of an unknown endpoint id.
	KindEndpointNotFound ErrorKind = "ENDPOINT_NOT_FOUND"
	// KindAuth marks an unresolvable security requirement list or a failed OAuth grant.
	KindAuth ErrorKind = "AUTH_ERROR"
	// KindRequest marks malformed call input, a transport failure or a timeout.
	KindRequest ErrorKind = "REQUEST_ERROR"
	// KindSchema marks a malformed or unsupported API document.
	KindSchema ErrorKind = "SCHEMA_ERROR"
)

// Error is the structured error type of the core. It always serializes to
// {code, message, details} and never carries a stack trace.
type Error struct {
	// Kind is the stable error tag.
	Kind ErrorKind

	// Message is a human-readable description.
	Message string

	// Details is a JSON-serializable payload with structured context.
	Details map[string]any

	// Cause is the underlying error, if any. It is not serialized.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorResponse is the wire shape of an error returned to a tool caller.
type ErrorResponse struct {
	Code    ErrorKind      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// MarshalJSON renders the error as an ErrorResponse.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(ErrorResponse{Code: e.Kind, Message: e.Message, Details: e.Details})
}

// WithDetail returns the error after setting one detail key.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause attaches the underlying error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// NewError creates a structured error of the given kind.
func NewError(kind ErrorKind, message string, details map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// NewConfigError creates a CONFIG_ERROR.
func NewConfigError(message string, details map[string]any) *Error {
	return NewError(KindConfig, message, details)
}

// NewAPINotFoundError creates an API_NOT_FOUND error for the given name.
func NewAPINotFoundError(apiName string) *Error {
	return NewError(KindAPINotFound, fmt.Sprintf("Unknown API '%s'", apiName), nil)
}

// NewEndpointNotFoundError creates an ENDPOINT_NOT_FOUND error.
func NewEndpointNotFoundError(apiName, endpointID string) *Error {
	return NewError(KindEndpointNotFound, fmt.Sprintf("Unknown endpoint '%s'", endpointID), map[string]any{
		"apiName": apiName,
	})
}

// NewAuthError creates an AUTH_ERROR.
func NewAuthError(message string, details map[string]any) *Error {
	return NewError(KindAuth, message, details)
}

// NewRequestError creates a REQUEST_ERROR.
func NewRequestError(message string, details map[string]any) *Error {
	return NewError(KindRequest, message, details)
}

// NewSchemaError creates a SCHEMA_ERROR.
func NewSchemaError(message string, details map[string]any) *Error {
	return NewError(KindSchema, message, details)
}

// KindOf returns the kind of a structured error anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return "", false
}

// IsKind checks if err is, or wraps, a structured error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsNotFound reports whether err is an API or endpoint lookup failure.
func IsNotFound(err error) bool {
	return IsKind(err, KindAPINotFound) || IsKind(err, KindEndpointNotFound)
}

// AsErrorResponse maps any error to the payload returned to a tool caller.
// Errors that are not structured become REQUEST_ERROR.
func AsErrorResponse(err error) ErrorResponse {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return ErrorResponse{Code: apiErr.Kind, Message: apiErr.Message, Details: apiErr.Details}
	}
	if err == nil {
		return ErrorResponse{Code: KindRequest, Message: "Unknown error"}
	}
	return ErrorResponse{Code: KindRequest, Message: err.Error()}
}
