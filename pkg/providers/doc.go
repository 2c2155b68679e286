// Package providers implements the adapter layer between the gateway and
// third-party LLM APIs.
//
// # Overview
//
// Each upstream API is wrapped by an Adapter that owns exactly one wire
// format. Adapters translate a provider-agnostic Call into the provider's
// request, decode the response into raw Chunks, and classify failures into
// an ErrorKind. They do not retry, clamp or time out on their own: the
// dispatcher supplies an already-clamped Call and a context carrying the
// per-provider deadline.
//
// # Architecture
//
//  1. Adapter / ChunkStream - the contract every provider implements
//  2. HTTPProvider - single-attempt HTTP base with pooling and status classification
//  3. Adapters - openai, anthropic, ollama, gemini and generic subpackages
//  4. Registry - adapters keyed by provider name
//
// # Wire formats
//
//	openai, generic   SSE with "data:" lines and a "[DONE]" terminator
//	anthropic         SSE with "event:" and "data:" lines
//	ollama            newline-delimited JSON
//	gemini            one JSON body, delivered as a single chunk
//
// # Error taxonomy
//
// HTTP and transport failures are returned as typed errors (AuthError,
// RateLimitError, ProviderError, NetworkError, TimeoutError, ParseError).
// ClassifyError maps them to ErrorKind values and IsRetryable tells the
// dispatcher whether another attempt is allowed: 5xx and network failures
// are retryable, 4xx and 429 are terminal.
//
// # Basic Usage
//
//	registry := providers.NewRegistry()
//	registry.Register(openai.NewProvider(providers.ProviderConfig{
//	    Name:    "openai",
//	    BaseURL: "https://api.openai.com/v1",
//	    APIKey:  os.Getenv("OPENAI_API_KEY"),
//	}))
//
//	adapter, _ := registry.Get("openai")
//	stream, err := adapter.Dispatch(ctx, &providers.Call{Model: "gpt-4o", Prompt: "ping", MaxTokens: 64})
package providers
