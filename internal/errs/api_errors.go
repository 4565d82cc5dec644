package errs

import (
	"encoding/json"
	"net/http"
)

// ErrorType classifies an APIError.
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "VALIDATION_ERROR"
	ErrorTypeAuth        ErrorType = "AUTH_ERROR"
	ErrorTypePermission  ErrorType = "PERMISSION_ERROR"
	ErrorTypeResource    ErrorType = "RESOURCE_ERROR"
	ErrorTypeInput       ErrorType = "INPUT_ERROR"
	ErrorTypeInternal    ErrorType = "INTERNAL_ERROR"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE_ERROR"
	ErrorTypeRateLimit   ErrorType = "RATE_LIMIT_ERROR"
)

// APIError is the JSON body written for error responses.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// ToJSON encodes e, falling back to a fixed internal error body.
func (e *APIError) ToJSON() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return []byte(`{"type":"INTERNAL_ERROR","code":500,"message":"Error serializing error response"}`)
	}
	return data
}

func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

// NewErrorFromStatus maps an HTTP status code onto an APIError. An empty
// message falls back to the standard status text.
func NewErrorFromStatus(statusCode int, message string) *APIError {
	if message == "" {
		message = http.StatusText(statusCode)
	}
	typ := ErrorTypeInput
	switch {
	case statusCode == http.StatusBadRequest:
		typ = ErrorTypeValidation
	case statusCode == http.StatusUnauthorized:
		typ = ErrorTypeAuth
	case statusCode == http.StatusForbidden:
		typ = ErrorTypePermission
	case statusCode == http.StatusNotFound:
		typ = ErrorTypeResource
	case statusCode == http.StatusTooManyRequests:
		typ = ErrorTypeRateLimit
	case statusCode == http.StatusServiceUnavailable:
		typ = ErrorTypeUnavailable
	case statusCode >= 500:
		typ = ErrorTypeInternal
	}
	return &APIError{Type: typ, Code: statusCode, Message: message}
}

// WrapError returns err itself when it is an *APIError and a 500 otherwise.
func WrapError(err error) *APIError {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	return NewErrorFromStatus(http.StatusInternalServerError, "")
}
