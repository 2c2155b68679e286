package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mercator-hq/switchboard/pkg/proxy/types"
)

const (
	// MaxRequestBodySize is the default request body limit (1MB).
	MaxRequestBodySize = 1 << 20

	// CallerIDHeader carries the opaque caller identity used for accounting.
	CallerIDHeader = "X-Caller-ID"

	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"
)

// ParseFanoutRequest decodes and validates a fan-out request body. A
// non-positive maxBody uses MaxRequestBodySize.
//
// Unknown fields are rejected so a misspelled option does not silently
// fall back to its default.
func ParseFanoutRequest(r *http.Request, maxBody int64) (*types.FanoutRequest, error) {
	if maxBody <= 0 {
		maxBody = MaxRequestBodySize
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if int64(len(body)) > maxBody {
		return nil, &RequestError{
			Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBody),
			Type:    types.ErrorTypeTooLarge,
			Code:    types.CodeRequestTooLarge,
			Param:   "body",
		}
	}

	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.DisallowUnknownFields()

	var req types.FanoutRequest
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		return nil, &RequestError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
			Code:    types.CodeInvalidJSON,
			Param:   "body",
		}
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// ExtractCaller returns the trimmed X-Caller-ID header.
func ExtractCaller(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(CallerIDHeader))
}

// ExtractRequestID extracts the request ID from the X-Request-ID header.
func ExtractRequestID(r *http.Request) string {
	return r.Header.Get(RequestIDHeader)
}

// RequestError represents a request parsing error.
type RequestError struct {
	Message string
	Type    string
	Code    string
	Param   string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// ToErrorResponse converts a RequestError to an error response.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	errType := e.Type
	if errType == "" {
		errType = types.ErrorTypeInvalidRequest
	}
	return types.NewErrorResponse(e.Message, errType, e.Param, e.Code)
}
