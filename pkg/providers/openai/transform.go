package openai

import (
	"fmt"

	"mercator-hq/switchboard/pkg/providers"
)

// OpenAI API request/response types

// OpenAIRequest represents an OpenAI chat completion request.
type OpenAIRequest struct {
	Model               string               `json:"model"`
	Messages            []OpenAIMessage      `json:"messages"`
	Temperature         *float64             `json:"temperature,omitempty"`
	MaxTokens           int                  `json:"max_tokens,omitempty"`
	MaxCompletionTokens int                  `json:"max_completion_tokens,omitempty"`
	Stream              bool                 `json:"stream,omitempty"`
	StreamOptions       *OpenAIStreamOptions `json:"stream_options,omitempty"`
	N                   int                  `json:"n,omitempty"`
}

// OpenAIStreamOptions asks the API to append a usage chunk to the stream.
type OpenAIStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// OpenAIMessage represents a message in OpenAI format.
type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIResponse represents an OpenAI chat completion response.
type OpenAIResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []OpenAIChoice `json:"choices"`
	Usage   *OpenAIUsage   `json:"usage,omitempty"`
}

// OpenAIChoice represents a completion choice in OpenAI format.
type OpenAIChoice struct {
	Index        int           `json:"index"`
	Message      OpenAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// OpenAIUsage represents token usage in OpenAI format.
type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAI streaming response types

// OpenAIStreamResponse represents a chunk in OpenAI's SSE stream.
type OpenAIStreamResponse struct {
	ID      string               `json:"id"`
	Object  string               `json:"object"`
	Created int64                `json:"created"`
	Model   string               `json:"model"`
	Choices []OpenAIStreamChoice `json:"choices"`
	Usage   *OpenAIUsage         `json:"usage,omitempty"`
}

// OpenAIStreamChoice represents a choice in a stream chunk.
type OpenAIStreamChoice struct {
	Index        int               `json:"index"`
	Delta        OpenAIStreamDelta `json:"delta"`
	FinishReason *string           `json:"finish_reason"`
}

// OpenAIStreamDelta represents the incremental content in a stream chunk.
type OpenAIStreamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// Transformation functions

// TransformRequest builds the chat completion body for a call.
// Models that reject explicit temperatures also take max_completion_tokens
// instead of max_tokens.
func TransformRequest(call *providers.Call, caps providers.Capabilities) *OpenAIRequest {
	req := &OpenAIRequest{
		Model:    call.Model,
		Messages: []OpenAIMessage{{Role: "user", Content: call.Prompt}},
		Stream:   call.Stream,
		N:        1,
	}

	if caps.OmitsTemperature(call.Model) {
		req.MaxCompletionTokens = call.MaxTokens
	} else {
		req.MaxTokens = call.MaxTokens
		req.Temperature = call.Temperature
	}

	if call.Stream {
		req.StreamOptions = &OpenAIStreamOptions{IncludeUsage: true}
	}

	return req
}

// transformResponse converts a non-streamed response into a single chunk.
func transformResponse(resp *OpenAIResponse) (*providers.Chunk, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	chunk := &providers.Chunk{
		Model:        resp.Model,
		Delta:        choice.Message.Content,
		FinishReason: choice.FinishReason,
	}
	if resp.Usage != nil {
		chunk.Usage = convertUsage(resp.Usage)
	}
	return chunk, nil
}

// transformStreamChunk converts one SSE payload. The trailing usage chunk
// has no choices.
func transformStreamChunk(chunk *OpenAIStreamResponse) *providers.Chunk {
	result := &providers.Chunk{Model: chunk.Model}

	if len(chunk.Choices) > 0 {
		choice := chunk.Choices[0]
		result.Delta = choice.Delta.Content
		if choice.FinishReason != nil {
			result.FinishReason = *choice.FinishReason
		}
	}

	if chunk.Usage != nil {
		result.Usage = convertUsage(chunk.Usage)
	}

	return result
}

func convertUsage(u *OpenAIUsage) *providers.Usage {
	return &providers.Usage{Input: u.PromptTokens, Output: u.CompletionTokens}
}
