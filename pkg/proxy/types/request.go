package types

import (
	"fmt"
	"strings"
	"time"

	"mercator-hq/switchboard/pkg/dispatch"
)

// FanoutRequest is the body of POST /v1/fanout and /v1/fanout/stream.
type FanoutRequest struct {
	// Prompt is the single user prompt sent to every engine.
	Prompt string `json:"prompt"`

	// MaxTokens is the requested output budget, 4096 when omitted or zero.
	// Each provider clamps it to its cap.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Engines are the target providers, in response order.
	Engines []Engine `json:"engines,omitempty"`

	// TimeoutMS overrides every provider's timeout.
	TimeoutMS int `json:"timeout_ms,omitempty"`

	// Temperature overrides every provider's temperature.
	Temperature *float64 `json:"temperature,omitempty"`
}

// Engine names one target provider and optionally a model.
type Engine struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
}

// ValidationError describes an invalid request field.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the request before anything is dispatched.
func (r *FanoutRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return &ValidationError{Field: "prompt", Code: CodeMissingField, Message: "prompt is required"}
	}
	if r.MaxTokens < 0 {
		return &ValidationError{Field: "max_tokens", Code: CodeInvalidValue, Message: "max_tokens must not be negative"}
	}
	if r.TimeoutMS < 0 {
		return &ValidationError{Field: "timeout_ms", Code: CodeInvalidValue, Message: "timeout_ms must not be negative"}
	}
	if r.Temperature != nil && (*r.Temperature < 0.0 || *r.Temperature > 2.0) {
		return &ValidationError{Field: "temperature", Code: CodeInvalidValue, Message: "temperature must be between 0.0 and 2.0"}
	}
	for i, e := range r.Engines {
		if strings.TrimSpace(e.Provider) == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("engines[%d].provider", i),
				Code:    CodeMissingField,
				Message: "provider is required",
			}
		}
	}
	return nil
}

// ToDispatch converts the request for the dispatcher.
func (r *FanoutRequest) ToDispatch(requestID, caller string) dispatch.Request {
	req := dispatch.Request{
		ID:          requestID,
		Caller:      caller,
		Prompt:      r.Prompt,
		MaxTokens:   r.MaxTokens,
		Timeout:     time.Duration(r.TimeoutMS) * time.Millisecond,
		Temperature: r.Temperature,
	}
	for _, e := range r.Engines {
		req.Targets = append(req.Targets, dispatch.Target{
			Provider: strings.TrimSpace(e.Provider),
			Model:    strings.TrimSpace(e.Model),
		})
	}
	return req
}
