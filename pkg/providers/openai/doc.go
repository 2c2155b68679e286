// Package openai implements the OpenAI adapter for the Chat Completions API.
//
// Streaming responses use Server-Sent Events with "data:" lines and a
// "data: [DONE]" terminator. The adapter asks for a trailing usage chunk
// (stream_options.include_usage) so token counts are reported on streams.
//
// Reasoning models (o1, o3, o4, gpt-5) reject an explicit temperature and
// take max_completion_tokens instead of max_tokens; the adapter declares
// this through Capabilities.OmitTemperatureFor and shapes the request
// accordingly.
//
// # Basic Usage
//
//	provider, err := openai.NewProvider(providers.ProviderConfig{
//	    Name:   "openai",
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	stream, err := provider.Dispatch(ctx, &providers.Call{
//	    Model:     "gpt-4o",
//	    Prompt:    "Hello!",
//	    MaxTokens: 256,
//	    Stream:    true,
//	})
//
// StreamReader is exported so OpenAI-compatible adapters can reuse it.
package openai
