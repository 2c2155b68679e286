package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockServer is a mock HTTP server for testing provider adapters and the
// dispatcher. It serves canned JSON bodies, SSE streams and raw framed
// streams, and records every request body it receives.
type MockServer struct {
	server    *httptest.Server
	responses map[string][]MockResponse
	requests  []RecordedRequest
	mu        sync.Mutex
}

// MockResponse defines a mock response configuration.
type MockResponse struct {
	StatusCode int
	Body       interface{}
	Headers    map[string]string

	// Delay is applied before anything is written. The wait ends early
	// when the client goes away.
	Delay time.Duration

	// StreamChunks are written as SSE "data:" events followed by "[DONE]".
	StreamChunks []string

	// RawLines are written verbatim, one per line, flushed individually.
	// Used for Anthropic event framing and NDJSON.
	RawLines []string

	// ChunkDelay is the pause between streamed chunks or lines.
	ChunkDelay time.Duration

	// Hang keeps the connection open after the stream until the client
	// disconnects.
	Hang bool
}

// RecordedRequest is a request captured by the mock server.
type RecordedRequest struct {
	Path    string
	Headers http.Header
	Body    map[string]interface{}
}

// NewMockServer creates a new mock server.
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses: make(map[string][]MockResponse),
	}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))
	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close closes the mock server.
func (ms *MockServer) Close() {
	ms.server.CloseClientConnections()
	ms.server.Close()
}

// SetResponse sets the response for a path, replacing any sequence.
func (ms *MockServer) SetResponse(path string, response MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[path] = []MockResponse{response}
}

// SetSequence sets responses served in order for a path. The last one is
// repeated once the sequence is exhausted.
func (ms *MockServer) SetSequence(path string, responses ...MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[path] = responses
}

// GetRequestCount returns the number of requests received.
func (ms *MockServer) GetRequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.requests)
}

// Requests returns a copy of the recorded requests.
func (ms *MockServer) Requests() []RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]RecordedRequest(nil), ms.requests...)
}

// LastRequest returns the most recent request, or a zero value.
func (ms *MockServer) LastRequest() RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if len(ms.requests) == 0 {
		return RecordedRequest{}
	}
	return ms.requests[len(ms.requests)-1]
}

func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	recorded := RecordedRequest{Path: r.URL.Path, Headers: r.Header.Clone()}
	if raw, err := io.ReadAll(r.Body); err == nil && len(raw) > 0 {
		_ = json.Unmarshal(raw, &recorded.Body)
	}

	ms.mu.Lock()
	ms.requests = append(ms.requests, recorded)
	seq, ok := ms.responses[r.URL.Path]
	var response MockResponse
	if ok {
		response = seq[0]
		if len(seq) > 1 {
			ms.responses[r.URL.Path] = seq[1:]
		}
	}
	ms.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}

	switch {
	case len(response.StreamChunks) > 0:
		ms.handleStream(w, r, response)
	case len(response.RawLines) > 0:
		ms.handleRaw(w, r, response)
	default:
		status := response.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		switch v := response.Body.(type) {
		case nil:
		case string:
			_, _ = w.Write([]byte(v))
		case []byte:
			_, _ = w.Write(v)
		default:
			_ = json.NewEncoder(w).Encode(v)
		}
	}
}

// handleStream writes Server-Sent Events with "data:" framing.
func (ms *MockServer) handleStream(w http.ResponseWriter, r *http.Request, response MockResponse) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	lines := make([]string, 0, len(response.StreamChunks)+1)
	for _, chunk := range response.StreamChunks {
		lines = append(lines, fmt.Sprintf("data: %s\n", chunk))
	}
	if !response.Hang {
		lines = append(lines, "data: [DONE]\n")
	}
	response.RawLines = lines
	ms.handleRaw(w, r, response)
}

// handleRaw writes each line verbatim followed by a newline.
func (ms *MockServer) handleRaw(w http.ResponseWriter, r *http.Request, response MockResponse) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/x-ndjson")
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	status := response.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	for _, line := range response.RawLines {
		fmt.Fprintf(w, "%s\n", line)
		flusher.Flush()
		if response.ChunkDelay > 0 {
			select {
			case <-time.After(response.ChunkDelay):
			case <-r.Context().Done():
				return
			}
		}
	}

	if response.Hang {
		<-r.Context().Done()
	}
}

// MockOpenAIResponse creates a mock OpenAI chat completion response.
func MockOpenAIResponse(content, model, finishReason string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]interface{}{
			{
				"index": 0,
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": finishReason,
			},
		},
		"usage": map[string]interface{}{
			"prompt_tokens":     10,
			"completion_tokens": 20,
			"total_tokens":      30,
		},
	}
}

// MockOpenAIStreamChunk creates a mock OpenAI streaming chunk. An empty
// finishReason is encoded as null.
func MockOpenAIStreamChunk(delta, finishReason string) string {
	var reason interface{}
	if finishReason != "" {
		reason = finishReason
	}
	chunk := map[string]interface{}{
		"id":      "chatcmpl-123",
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   "gpt-4o",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"delta":         map[string]interface{}{"content": delta},
				"finish_reason": reason,
			},
		},
	}
	bytes, _ := json.Marshal(chunk)
	return string(bytes)
}

// MockOpenAIUsageChunk creates the trailing usage-only chunk.
func MockOpenAIUsageChunk(input, output int) string {
	chunk := map[string]interface{}{
		"id":      "chatcmpl-123",
		"object":  "chat.completion.chunk",
		"model":   "gpt-4o",
		"choices": []interface{}{},
		"usage": map[string]interface{}{
			"prompt_tokens":     input,
			"completion_tokens": output,
			"total_tokens":      input + output,
		},
	}
	bytes, _ := json.Marshal(chunk)
	return string(bytes)
}

// MockAnthropicResponse creates a mock Anthropic messages response.
func MockAnthropicResponse(content, model, stopReason string) map[string]interface{} {
	return map[string]interface{}{
		"id":   "msg_123",
		"type": "message",
		"role": "assistant",
		"content": []map[string]interface{}{
			{"type": "text", "text": content},
		},
		"model":       model,
		"stop_reason": stopReason,
		"usage": map[string]interface{}{
			"input_tokens":  10,
			"output_tokens": 20,
		},
	}
}

// MockAnthropicStream builds the raw lines of an Anthropic event stream
// that emits each delta and then stops with stopReason.
func MockAnthropicStream(model, stopReason string, deltas ...string) []string {
	var lines []string
	add := func(eventType string, data interface{}) {
		bytes, _ := json.Marshal(data)
		lines = append(lines, "event: "+eventType, "data: "+string(bytes), "")
	}

	add("message_start", map[string]interface{}{
		"type": "message_start",
		"message": map[string]interface{}{
			"id": "msg_123", "type": "message", "role": "assistant", "model": model,
			"content": []interface{}{},
			"usage":   map[string]interface{}{"input_tokens": 12, "output_tokens": 1},
		},
	})
	add("content_block_start", map[string]interface{}{
		"type": "content_block_start", "index": 0,
		"content_block": map[string]interface{}{"type": "text", "text": ""},
	})
	add("ping", map[string]interface{}{"type": "ping"})
	for _, d := range deltas {
		add("content_block_delta", map[string]interface{}{
			"type": "content_block_delta", "index": 0,
			"delta": map[string]interface{}{"type": "text_delta", "text": d},
		})
	}
	add("content_block_stop", map[string]interface{}{"type": "content_block_stop", "index": 0})
	add("message_delta", map[string]interface{}{
		"type":  "message_delta",
		"delta": map[string]interface{}{"stop_reason": stopReason},
		"usage": map[string]interface{}{"output_tokens": 7},
	})
	add("message_stop", map[string]interface{}{"type": "message_stop"})
	return lines
}

// MockOllamaStream builds NDJSON lines for an Ollama chat stream.
func MockOllamaStream(model, doneReason string, deltas ...string) []string {
	var lines []string
	for _, d := range deltas {
		bytes, _ := json.Marshal(map[string]interface{}{
			"model":   model,
			"message": map[string]interface{}{"role": "assistant", "content": d},
			"done":    false,
		})
		lines = append(lines, string(bytes))
	}
	bytes, _ := json.Marshal(map[string]interface{}{
		"model":             model,
		"message":           map[string]interface{}{"role": "assistant", "content": ""},
		"done":              true,
		"done_reason":       doneReason,
		"prompt_eval_count": 9,
		"eval_count":        len(deltas),
	})
	return append(lines, string(bytes))
}

// MockGeminiResponse creates a mock generateContent response.
func MockGeminiResponse(text, finishReason string) map[string]interface{} {
	return map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content": map[string]interface{}{
					"role":  "model",
					"parts": []map[string]interface{}{{"text": text}},
				},
				"finishReason": finishReason,
			},
		},
		"usageMetadata": map[string]interface{}{
			"promptTokenCount":     5,
			"candidatesTokenCount": 8,
			"totalTokenCount":      13,
		},
		"modelVersion": "gemini-1.5-flash",
	}
}

// MockErrorResponse creates a mock error response.
func MockErrorResponse(statusCode int, message string) MockResponse {
	return MockResponse{
		StatusCode: statusCode,
		Body: map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
				"type":    "invalid_request_error",
				"code":    statusCode,
			},
		},
	}
}

// MockAuthError creates a 401 authentication error response.
func MockAuthError() MockResponse {
	return MockErrorResponse(http.StatusUnauthorized, "Invalid API key")
}

// MockRateLimitError creates a 429 rate limit error response.
func MockRateLimitError(retryAfter int) MockResponse {
	response := MockErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded")
	response.Headers = map[string]string{
		"Retry-After": fmt.Sprintf("%d", retryAfter),
	}
	return response
}

// MockServerError creates a 500 internal server error response.
func MockServerError() MockResponse {
	return MockErrorResponse(http.StatusInternalServerError, "Internal server error")
}

// ExpectHeader checks if a request has a specific header value.
func ExpectHeader(r RecordedRequest, key, value string) error {
	actual := r.Headers.Get(key)
	if !strings.Contains(actual, value) {
		return fmt.Errorf("header %q mismatch: expected %q, got %q", key, value, actual)
	}
	return nil
}
