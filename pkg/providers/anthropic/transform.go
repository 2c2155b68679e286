package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"mercator-hq/switchboard/pkg/providers"
)

// defaultMaxTokens is sent when the call carries no limit; the Messages API
// requires max_tokens.
const defaultMaxTokens = 4096

// Anthropic API request/response types

// AnthropicRequest represents an Anthropic messages request.
type AnthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []AnthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

// AnthropicMessage represents a message in Anthropic format.
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContentBlock represents a content block in Anthropic format.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// AnthropicResponse represents an Anthropic messages response.
type AnthropicResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      AnthropicUsage `json:"usage"`
}

// AnthropicUsage represents token usage in Anthropic format.
type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// AnthropicError is the body of an "error" stream event or error response.
type AnthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Anthropic streaming response types

// AnthropicStreamEvent represents an event in Anthropic's SSE stream.
// Delta differs by event type and is decoded lazily.
type AnthropicStreamEvent struct {
	Type    string             `json:"type"`
	Message *AnthropicResponse `json:"message,omitempty"`
	Index   int                `json:"index,omitempty"`
	Delta   json.RawMessage    `json:"delta,omitempty"`
	Usage   *AnthropicUsage    `json:"usage,omitempty"`
	Error   *AnthropicError    `json:"error,omitempty"`
}

// ContentBlockDelta is the delta of a content_block_delta event.
type ContentBlockDelta struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// MessageDelta is the delta of a message_delta event.
type MessageDelta struct {
	StopReason   string `json:"stop_reason,omitempty"`
	StopSequence string `json:"stop_sequence,omitempty"`
}

// streamState carries input token counts from message_start to the
// message_delta that reports output usage.
type streamState struct {
	model       string
	inputTokens int
}

// Transformation functions

// transformRequest builds the Messages API body for a call.
func transformRequest(call *providers.Call, caps providers.Capabilities) *AnthropicRequest {
	req := &AnthropicRequest{
		Model:     call.Model,
		Messages:  []AnthropicMessage{{Role: "user", Content: call.Prompt}},
		MaxTokens: call.MaxTokens,
		Stream:    call.Stream,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}
	if !caps.OmitsTemperature(call.Model) && call.Temperature != nil {
		// The Messages API accepts 0.0-1.0.
		t := *call.Temperature
		if t > 1 {
			t = 1
		}
		req.Temperature = &t
	}
	return req
}

// transformResponse converts a non-streamed response into a single chunk.
func transformResponse(resp *AnthropicResponse) *providers.Chunk {
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &providers.Chunk{
		Model:        resp.Model,
		Delta:        text.String(),
		FinishReason: resp.StopReason,
		Usage: &providers.Usage{
			Input:  resp.Usage.InputTokens,
			Output: resp.Usage.OutputTokens,
		},
	}
}

// transformStreamEvent converts one SSE event. It returns nil for events
// that carry nothing the normalizer needs (ping, content_block_start, ...).
func transformStreamEvent(event *AnthropicStreamEvent, state *streamState) (*providers.Chunk, error) {
	switch event.Type {
	case "message_start":
		if event.Message != nil {
			state.model = event.Message.Model
			state.inputTokens = event.Message.Usage.InputTokens
		}
		return nil, nil

	case "content_block_delta":
		var delta ContentBlockDelta
		if err := json.Unmarshal(event.Delta, &delta); err != nil {
			return nil, fmt.Errorf("failed to parse content_block_delta: %w", err)
		}
		if delta.Type != "text_delta" || delta.Text == "" {
			return nil, nil
		}
		return &providers.Chunk{Model: state.model, Delta: delta.Text}, nil

	case "message_delta":
		var delta MessageDelta
		if len(event.Delta) > 0 {
			if err := json.Unmarshal(event.Delta, &delta); err != nil {
				return nil, fmt.Errorf("failed to parse message_delta: %w", err)
			}
		}
		chunk := &providers.Chunk{Model: state.model, FinishReason: delta.StopReason}
		if event.Usage != nil {
			chunk.Usage = &providers.Usage{
				Input:  state.inputTokens,
				Output: event.Usage.OutputTokens,
			}
		}
		return chunk, nil

	default:
		return nil, nil
	}
}
