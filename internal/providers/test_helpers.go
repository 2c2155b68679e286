package providers

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"mercator-hq/switchboard/pkg/providers"
)

// TestConfig returns a test provider configuration.
func TestConfig(name, providerType string) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:                name,
		Type:                providerType,
		BaseURL:             "http://localhost:8080",
		APIKey:              "test-key",
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
	}
}

// TestConfigWithURL returns a test config with a specific base URL.
func TestConfigWithURL(name, providerType, baseURL string) providers.ProviderConfig {
	config := TestConfig(name, providerType)
	config.BaseURL = baseURL
	return config
}

// TestCall creates a test call.
func TestCall(model, prompt string, stream bool) *providers.Call {
	temp := 0.7
	return &providers.Call{
		Model:       model,
		Prompt:      prompt,
		MaxTokens:   100,
		Temperature: &temp,
		Stream:      stream,
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertKind fails the test if err does not classify as kind.
func AssertKind(t *testing.T, err error, kind providers.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := providers.ClassifyError(err); got != kind {
		t.Fatalf("expected %s, got %s (%T: %v)", kind, got, err, err)
	}
}

// CollectChunks drains a stream until EOF or error.
func CollectChunks(ctx context.Context, stream providers.ChunkStream) ([]*providers.Chunk, error) {
	defer stream.Close()

	var collected []*providers.Chunk
	for {
		chunk, err := stream.Read(ctx)
		if errors.Is(err, io.EOF) {
			return collected, nil
		}
		if err != nil {
			return collected, err
		}
		collected = append(collected, chunk)
	}
}

// ConcatenateChunks concatenates the delta content from all chunks.
func ConcatenateChunks(chunks []*providers.Chunk) string {
	var result string
	for _, chunk := range chunks {
		result += chunk.Delta
	}
	return result
}

// LastFinishReason returns the last non-empty finish reason.
func LastFinishReason(chunks []*providers.Chunk) string {
	var reason string
	for _, chunk := range chunks {
		if chunk.FinishReason != "" {
			reason = chunk.FinishReason
		}
	}
	return reason
}

// WaitForCondition waits for a condition to become true within a timeout.
func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool, message string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if condition() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s: %s", timeout, message)
		}
		<-ticker.C
	}
}
