package stream

import (
	"strings"

	"mercator-hq/switchboard/pkg/providers"
)

// EventType discriminates StreamEvents. The values double as SSE event
// names.
type EventType string

const (
	EventDelta     EventType = "delta"
	EventUsage     EventType = "usage"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
)

// Event is one normalized stream event. Seq increases by one per event
// within a provider, starting at 1.
type Event struct {
	Provider string    `json:"provider"`
	Seq      int       `json:"seq"`
	Type     EventType `json:"type"`

	// Delta
	Text string `json:"text,omitempty"`

	// Usage
	Usage *providers.Usage `json:"usage,omitempty"`

	// Completed
	FinishReason string `json:"finish_reason,omitempty"`
	Truncated    bool   `json:"truncated,omitempty"`

	// Failed
	ErrorKind providers.ErrorKind `json:"error_kind,omitempty"`
	Message   string              `json:"message,omitempty"`
}

// Terminal reports whether no further events follow for the provider.
func (e Event) Terminal() bool {
	return e.Type == EventCompleted || e.Type == EventFailed
}

// NormalizeFinishReason maps provider finish reasons onto the shared
// vocabulary and reports whether the output was cut by the token cap.
func NormalizeFinishReason(raw string) (string, bool) {
	switch strings.ToLower(raw) {
	case "":
		return providers.FinishReasonUnknown, false
	case "length", "max_tokens", "max_output_tokens":
		return providers.FinishReasonLength, true
	case "stop", "end_turn", "stop_sequence", "eos":
		return providers.FinishReasonStop, false
	case "tool_calls", "tool_use", "function_call":
		return providers.FinishReasonToolCalls, false
	case "content_filter", "safety", "recitation", "blocklist", "prohibited_content":
		return providers.FinishReasonContentFilter, false
	default:
		return strings.ToLower(raw), false
	}
}
