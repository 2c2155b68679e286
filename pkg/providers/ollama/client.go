// Package ollama implements the adapter for Ollama's native chat API.
//
// Ollama streams newline-delimited JSON objects from /api/chat. Each object
// carries a message fragment; the final object has done=true, a done_reason
// and the token counts. Local servers need no API key.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"mercator-hq/switchboard/pkg/providers"
)

// DefaultBaseURL is the address of a local Ollama server.
const DefaultBaseURL = "http://localhost:11434"

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *ChatOptions  `json:"options,omitempty"`
}

// ChatMessage is a single chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions holds sampling options. num_predict is the output token limit.
type ChatOptions struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// ChatResponse is one NDJSON line, or the whole body when not streaming.
type ChatResponse struct {
	Model           string      `json:"model"`
	Message         ChatMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason,omitempty"`
	PromptEvalCount int         `json:"prompt_eval_count,omitempty"`
	EvalCount       int         `json:"eval_count,omitempty"`
	Error           string      `json:"error,omitempty"`
}

// Provider is the Ollama adapter.
type Provider struct {
	*providers.HTTPProvider
}

// NewProvider creates a new Ollama adapter.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{Provider: "ollama", Field: "name", Message: "provider name is required"}
	}
	if config.Type == "" {
		config.Type = "ollama"
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	slog.Debug("Ollama provider initialized", "provider", config.Name, "base_url", config.BaseURL)
	return &Provider{HTTPProvider: providers.NewHTTPProvider(config)}, nil
}

// Capabilities implements providers.Adapter.
func (p *Provider) Capabilities() providers.Capabilities {
	return providers.Capabilities{Framing: providers.FramingNDJSON, Streaming: true}
}

// HasCredentials is always true; Ollama does not authenticate.
func (p *Provider) HasCredentials() bool {
	return true
}

// Dispatch sends one chat request. Both streaming and non-streaming
// responses are decoded line by line, since a non-streamed body is a
// single line with done=true.
func (p *Provider) Dispatch(ctx context.Context, call *providers.Call) (providers.ChunkStream, error) {
	if call == nil || call.Model == "" {
		return nil, &providers.ValidationError{Field: "model", Message: "model is required"}
	}
	if call.Prompt == "" {
		return nil, &providers.ValidationError{Field: "prompt", Message: "prompt is required"}
	}

	req := &ChatRequest{
		Model:    call.Model,
		Messages: []ChatMessage{{Role: "user", Content: call.Prompt}},
		Stream:   call.Stream,
		Options:  &ChatOptions{NumPredict: call.MaxTokens, Temperature: call.Temperature},
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if key := p.Config().APIKey; key != "" {
		headers["Authorization"] = "Bearer " + key
	}

	resp, err := p.DoJSONRequest(ctx, p.Config().BaseURL+"/api/chat", req, headers)
	if err != nil {
		return nil, err
	}
	return &streamReader{provider: p.HTTPProvider, lines: providers.NewLineReader(p.HTTPProvider, resp.Body)}, nil
}

// streamReader decodes NDJSON lines.
type streamReader struct {
	provider *providers.HTTPProvider
	lines    *providers.LineReader
	done     bool
}

func (s *streamReader) Read(ctx context.Context) (*providers.Chunk, error) {
	if s.done {
		return nil, io.EOF
	}

	for {
		line, err := s.lines.Next(ctx)
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var msg ChatResponse
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			return nil, &providers.ParseError{
				Provider:    s.provider.Name(),
				RawResponse: line,
				Cause:       fmt.Errorf("failed to parse ndjson line: %w", err),
			}
		}
		if msg.Error != "" {
			return nil, &providers.StreamError{Provider: s.provider.Name(), Message: msg.Error}
		}

		chunk := &providers.Chunk{Model: msg.Model, Delta: msg.Message.Content}
		if msg.Done {
			s.done = true
			chunk.FinishReason = msg.DoneReason
			if chunk.FinishReason == "" {
				chunk.FinishReason = providers.FinishReasonStop
			}
			chunk.Usage = &providers.Usage{Input: msg.PromptEvalCount, Output: msg.EvalCount}
		}
		return chunk, nil
	}
}

func (s *streamReader) Close() error {
	s.done = true
	return s.lines.Close()
}

var _ providers.Adapter = (*Provider)(nil)
