// Package types defines the wire format of the fan-out HTTP API.
//
// # Fan-out request
//
//	{
//	  "prompt": "ping",
//	  "max_tokens": 256,
//	  "engines": [{"provider": "openai", "model": "gpt-4o-mini"}, {"provider": "anthropic"}],
//	  "timeout_ms": 20000,
//	  "temperature": 0.2
//	}
//
// Only prompt is required. Omitting engines targets every enabled provider.
//
// # Errors
//
// Every error response has the shape
//
//	{"error": {"message": "...", "type": "validation_error", "param": "prompt", "code": "missing_field"}}
//
// and the HTTP status follows the type (see ErrorDetail.HTTPStatusCode).
package types
