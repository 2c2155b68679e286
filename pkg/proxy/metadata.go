package proxy

import (
	"net/http"
	"time"

	"mercator-hq/switchboard/pkg/dispatch"
	"mercator-hq/switchboard/pkg/proxy/types"
)

// RequestMetadata summarizes a fan-out request for the access log. The
// prompt itself is never included.
type RequestMetadata struct {
	RequestID    string
	Caller       string
	Engines      int
	PromptLength int
	MaxTokens    int
	Stream       bool
	Method       string
	Path         string
	RemoteAddr   string
	Timestamp    time.Time
}

// ExtractRequestMetadata builds RequestMetadata from the HTTP request and
// the decoded body.
func ExtractRequestMetadata(r *http.Request, req *types.FanoutRequest, requestID string, stream bool) *RequestMetadata {
	return &RequestMetadata{
		RequestID:    requestID,
		Caller:       ExtractCaller(r),
		Engines:      len(req.Engines),
		PromptLength: len(req.Prompt),
		MaxTokens:    req.MaxTokens,
		Stream:       stream,
		Method:       r.Method,
		Path:         r.URL.Path,
		RemoteAddr:   r.RemoteAddr,
		Timestamp:    time.Now(),
	}
}

// LogAttrs returns the metadata as slog key-value pairs.
func (m *RequestMetadata) LogAttrs() []any {
	return []any{
		"engines", m.Engines,
		"prompt_length", m.PromptLength,
		"max_tokens", m.MaxTokens,
		"stream", m.Stream,
		"path", m.Path,
	}
}

// ResponseMetadata summarizes a settled envelope.
type ResponseMetadata struct {
	RequestID    string
	Successful   int
	Failed       int
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
}

// ExtractResponseMetadata totals an envelope.
func ExtractResponseMetadata(env *dispatch.Envelope) *ResponseMetadata {
	m := &ResponseMetadata{
		RequestID:  env.ID,
		Successful: env.Meta.Successful,
		Failed:     env.Meta.Failed,
		Latency:    time.Duration(env.Meta.TotalLatencyMS) * time.Millisecond,
	}
	for _, r := range env.Responses {
		if r.Usage != nil {
			m.InputTokens += r.Usage.Input
			m.OutputTokens += r.Usage.Output
		}
	}
	return m
}

// IsPartial reports whether some but not all providers succeeded.
func (m *ResponseMetadata) IsPartial() bool {
	return m.Successful > 0 && m.Failed > 0
}

// LogAttrs returns the metadata as slog key-value pairs.
func (m *ResponseMetadata) LogAttrs() []any {
	return []any{
		"successful", m.Successful,
		"failed", m.Failed,
		"input_tokens", m.InputTokens,
		"output_tokens", m.OutputTokens,
		"latency_ms", m.Latency.Milliseconds(),
	}
}
