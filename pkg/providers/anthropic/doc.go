// Package anthropic implements the Anthropic adapter for the Messages API.
//
// Streaming responses use Server-Sent Events with both "event:" and "data:"
// lines. The reader keeps the input token count from message_start and
// reports it with the output count carried by message_delta, which also
// holds the stop reason ("end_turn", "max_tokens", ...). An in-band "error"
// event becomes a providers.StreamError.
//
// The Messages API requires max_tokens, so a call without a limit is sent
// with 4096. Temperatures above 1.0 are capped to the API's range.
//
// # Basic Usage
//
//	provider, err := anthropic.NewProvider(providers.ProviderConfig{
//	    Name:   "anthropic",
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
package anthropic
