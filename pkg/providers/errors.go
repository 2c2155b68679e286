package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrorKind is the provider-independent failure taxonomy reported in
// stream events and the response envelope.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindRateLimited ErrorKind = "rate_limited"
	KindUpstream    ErrorKind = "upstream_error"
	KindAuth        ErrorKind = "auth_error"
	KindNetwork     ErrorKind = "network_error"
	KindParse       ErrorKind = "parse_error"
	KindCancelled   ErrorKind = "cancelled"
	KindConfig      ErrorKind = "config_error"
	KindInternal    ErrorKind = "internal"
)

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	return string(k)
}

// ProviderError represents a non-success HTTP response from a provider.
// The message is the response body, kept verbatim.
type ProviderError struct {
	// Provider is the name of the provider that returned the error
	Provider string

	// StatusCode is the HTTP status code (0 if not applicable)
	StatusCode int

	// Message is the error message
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// AuthError represents an authentication failure (HTTP 401 or 403).
type AuthError struct {
	Provider string
	Message  string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %q authentication failed: %s", e.Provider, e.Message)
}

// RateLimitError represents HTTP 429 from a provider, or a rejection by the
// local requests-per-minute gate when Local is set.
type RateLimitError struct {
	// Provider is the name of the provider that rate limited the request
	Provider string

	// RetryAfter is the duration to wait before retrying (if provided)
	RetryAfter time.Duration

	// Message is the error message from the provider
	Message string

	// Local is true when the request never left the gateway
	Local bool
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limit exceeded (retry after %s): %s",
			e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("provider %q rate limit exceeded: %s", e.Provider, e.Message)
}

// TimeoutError represents a call that exceeded its per-provider timeout.
type TimeoutError struct {
	// Provider is the name of the provider where the timeout occurred
	Provider string

	// Timeout is the configured timeout duration
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("provider %q request timeout after %s", e.Provider, e.Timeout)
	}
	return fmt.Sprintf("provider %q request timeout", e.Provider)
}

// NetworkError represents a transport failure before a response arrived
// (connection refused, reset, DNS).
type NetworkError struct {
	Provider string
	Cause    error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("provider %q network error: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// ParseError represents a response parsing failure.
// This occurs when the provider returns a malformed response.
type ParseError struct {
	// Provider is the name of the provider that returned the malformed response
	Provider string

	// RawResponse is the raw response body that failed to parse
	RawResponse string

	// Cause is the underlying parse error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("provider %q response parse error: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ValidationError represents a call that was rejected before sending.
type ValidationError struct {
	// Field is the name of the invalid field
	Field string

	// Message describes what is invalid about the field
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %q: %s", e.Field, e.Message)
}

// StreamError represents an error reported in-band by the provider after
// the response started, such as an Anthropic "error" event.
type StreamError struct {
	// Provider is the name of the provider where the error occurred
	Provider string

	// Message is the error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %q stream error: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider %q stream error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *StreamError) Unwrap() error {
	return e.Cause
}

// ConfigError represents a provider configuration error.
type ConfigError struct {
	// Provider is the name of the provider with invalid configuration
	Provider string

	// Field is the configuration field that is invalid
	Field string

	// Message describes the configuration error
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q configuration error for field %q: %s",
		e.Provider, e.Field, e.Message)
}

// ClassifyError maps any error produced while calling a provider onto an
// ErrorKind. Typed errors are checked before context errors so that a
// TimeoutError wrapping context.DeadlineExceeded reports as a timeout.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var (
		rateErr    *RateLimitError
		timeoutErr *TimeoutError
		authErr    *AuthError
		parseErr   *ParseError
		netErr     *NetworkError
		provErr    *ProviderError
		streamErr  *StreamError
		configErr  *ConfigError
		validErr   *ValidationError
	)

	switch {
	case errors.As(err, &rateErr):
		return KindRateLimited
	case errors.As(err, &timeoutErr):
		return KindTimeout
	case errors.As(err, &authErr):
		return KindAuth
	case errors.As(err, &configErr), errors.As(err, &validErr):
		return KindConfig
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &provErr):
		return KindUpstream
	case errors.As(err, &streamErr):
		return KindUpstream
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.As(err, &netErr):
		return KindNetwork
	}

	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}

	return KindUpstream
}

// IsRetryable reports whether a failed call may be attempted again.
// 5xx responses and network failures are retryable; 4xx responses, rate
// limits, auth failures and timeouts are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	switch ClassifyError(err) {
	case KindNetwork:
		return true
	case KindUpstream:
		var provErr *ProviderError
		if errors.As(err, &provErr) {
			return provErr.StatusCode == 0 || provErr.StatusCode >= 500
		}
		var streamErr *StreamError
		return errors.As(err, &streamErr)
	default:
		return false
	}
}
