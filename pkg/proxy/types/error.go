package types

import "net/http"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error and selects the HTTP status.
	Type string `json:"type"`

	// Param is the request field that caused the error, if any.
	Param string `json:"param,omitempty"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`
}

// Error types.
const (
	// ErrorTypeValidation rejects a well-formed request with invalid fields (400).
	ErrorTypeValidation = "validation_error"

	// ErrorTypeInvalidRequest rejects a malformed request (400).
	ErrorTypeInvalidRequest = "invalid_request_error"

	// ErrorTypeMethodNotAllowed rejects a request with the wrong method (405).
	ErrorTypeMethodNotAllowed = "method_not_allowed"

	// ErrorTypeTooLarge rejects an oversized body (413).
	ErrorTypeTooLarge = "request_too_large"

	// ErrorTypeConfiguration means the gateway has nothing to dispatch to (503).
	ErrorTypeConfiguration = "configuration_error"

	// ErrorTypeServerError is an unexpected internal failure (500).
	ErrorTypeServerError = "server_error"
)

// Error codes.
const (
	CodeMissingField       = "missing_field"
	CodeInvalidValue       = "invalid_value"
	CodeInvalidJSON        = "invalid_json"
	CodeRequestTooLarge    = "request_too_large"
	CodeNoEnabledProviders = "no_enabled_providers"
	CodeInternalError      = "internal_error"
)

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(message, errorType, param, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Param:   param,
			Code:    code,
		},
	}
}

// NewValidationError creates a 400 response for an invalid field.
func NewValidationError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeValidation, param, code)
}

// NewInvalidRequestError creates a 400 response for a malformed request.
func NewInvalidRequestError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, param, code)
}

// NewServerError creates a 500 response.
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, "", CodeInternalError)
}

// HTTPStatusCode returns the HTTP status for the error type.
func (e *ErrorDetail) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeValidation, ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrorTypeTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrorTypeConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
