package providers

import (
	"strings"
	"time"
)

// Usage tracks token consumption for a single provider call.
type Usage struct {
	// Input is the number of prompt tokens
	Input int `json:"input"`

	// Output is the number of generated tokens
	Output int `json:"output"`
}

// Total returns input plus output tokens.
func (u Usage) Total() int {
	return u.Input + u.Output
}

// Call is the provider-agnostic request handed to an adapter.
// It carries exactly one user prompt; conversation history is not supported.
type Call struct {
	// Model is the model identifier (e.g., "gpt-4o", "claude-3-5-sonnet-latest")
	Model string

	// Prompt is the user prompt text
	Prompt string

	// MaxTokens is the effective output token limit after clamping
	MaxTokens int

	// Temperature is optional. Adapters drop it when their capabilities
	// say the model rejects explicit temperatures.
	Temperature *float64

	// Stream asks the adapter for incremental output when the wire format supports it
	Stream bool
}

// Chunk is a single raw piece of provider output after wire-format decoding.
// A chunk may carry text, usage, a finish reason, or any combination.
type Chunk struct {
	// Model is the model reported by the provider (may be empty)
	Model string

	// Delta is the incremental text in this chunk
	Delta string

	// FinishReason is set on the chunk that ends generation, verbatim from the provider
	FinishReason string

	// Usage is set when the provider reports token counts
	Usage *Usage

	// Whole marks a chunk that is the entire response (non-streaming body)
	Whole bool
}

// Framing identifies the wire format an adapter decodes.
type Framing string

const (
	// FramingSSEData is server-sent events using only "data:" lines (OpenAI style).
	FramingSSEData Framing = "sse-data"

	// FramingSSEEvent is server-sent events with "event:" and "data:" lines (Anthropic style).
	FramingSSEEvent Framing = "sse-event"

	// FramingNDJSON is newline-delimited JSON objects (Ollama style).
	FramingNDJSON Framing = "ndjson"

	// FramingSingleBody is one non-streamed JSON body (Gemini generateContent).
	FramingSingleBody Framing = "single-body"
)

// Capabilities describes what an adapter's upstream API accepts.
type Capabilities struct {
	// Framing is the wire format of the response
	Framing Framing

	// Streaming is true when the provider emits incremental output
	Streaming bool

	// OmitTemperatureFor lists model prefixes that reject an explicit temperature
	OmitTemperatureFor []string
}

// OmitsTemperature reports whether temperature must be left out for model.
func (c Capabilities) OmitsTemperature(model string) bool {
	for _, prefix := range c.OmitTemperatureFor {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// SingleBody reports whether the provider delivers its output in one piece.
func (c Capabilities) SingleBody() bool {
	return c.Framing == FramingSingleBody || !c.Streaming
}

// ProviderConfig contains the connection settings for a single adapter.
// Operating limits (caps, timeouts, retries) are not here; they come from
// the settings resolver per request.
type ProviderConfig struct {
	// Name is the provider identifier (e.g., "openai", "anthropic")
	Name string

	// Type is the adapter type (openai, anthropic, ollama, gemini, generic)
	Type string

	// BaseURL is the API endpoint base URL
	BaseURL string

	// APIKey is the authentication key (empty for local providers)
	APIKey string

	// APIVersion is sent by adapters that version their API through a header
	APIVersion string

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool
	IdleConnTimeout time.Duration
}

// Finish reason constants used after normalization.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonToolCalls     = "tool_calls"
	FinishReasonContentFilter = "content_filter"
	FinishReasonUnknown       = "unknown"
)
