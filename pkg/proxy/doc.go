// Package proxy is the HTTP surface of the fan-out gateway.
//
// A caller posts one prompt and a list of target engines; the request is
// dispatched to every engine concurrently and answered either as a single
// JSON envelope or as a Server-Sent Events stream.
//
// # Layout
//
//   - types: wire request, response and error shapes
//   - handlers: the fan-out, streaming and provider listing endpoints
//   - middleware: request ID, caller identity, logging, CORS and panic recovery
//
// This package holds the helpers the handlers share: request parsing,
// error mapping and response writing.
//
// # Endpoints
//
//	POST /v1/fanout          buffered envelope
//	POST /v1/fanout/stream   per-provider SSE events, then the envelope
//	GET  /v1/providers       resolved provider settings
//
// # Streaming format
//
// Every normalized event is written as a named SSE event. The envelope
// follows once every provider has settled, then the done marker:
//
//	event: delta
//	data: {"provider":"openai","seq":0,"type":"delta","text":"po"}
//
//	event: completed
//	data: {"provider":"openai","seq":2,"type":"completed","finish_reason":"stop"}
//
//	event: envelope
//	data: {"id":"...","responses":[...],"meta":{...}}
//
//	data: [DONE]
//
// # Errors
//
// Only request-level problems produce a non-2xx status. A provider failure
// is reported inside the envelope; a fan-out where every provider failed is
// still a 200.
//
//	{
//	  "error": {
//	    "message": "prompt is required",
//	    "type": "validation_error",
//	    "param": "prompt",
//	    "code": "missing_field"
//	  }
//	}
package proxy
