package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoTargets is returned when a request names no providers and none are
// enabled.
var ErrNoTargets = errors.New("no enabled providers to dispatch to")

// Target is one provider in a fan-out. An empty Model means the
// provider's resolved default model.
type Target struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
}

// Request is one accepted fan-out. It is not modified by the dispatcher.
type Request struct {
	// ID identifies the fan-out; generated when empty.
	ID string

	// Caller is the opaque caller identity, used for logging and usage.
	Caller string

	Prompt string

	// MaxTokens is the requested output budget. Non-positive means
	// limits.DefaultOutputCap, still clamped to each provider's cap.
	MaxTokens int

	// Targets lists providers in response order. Empty means every enabled
	// provider.
	Targets []Target

	// Timeout overrides every provider's resolved timeout when positive.
	Timeout time.Duration

	// Deadline bounds the whole fan-out. Zero infers it from the longest
	// per-provider timeout.
	Deadline time.Time

	// Temperature overrides the providers' resolved temperature.
	Temperature *float64
}

// ValidationError rejects a request before anything is dispatched.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the request fields that do not need the resolver.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return &ValidationError{Field: "prompt", Message: "must not be empty"}
	}
	if r.Timeout < 0 {
		return &ValidationError{Field: "timeout_ms", Message: "must not be negative"}
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return &ValidationError{Field: "temperature", Message: "must be within [0, 2]"}
	}
	for i, t := range r.Targets {
		if strings.TrimSpace(t.Provider) == "" {
			return &ValidationError{Field: fmt.Sprintf("engines[%d].provider", i), Message: "must not be empty"}
		}
	}
	return nil
}
