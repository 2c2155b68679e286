// Package generic implements an adapter for OpenAI-compatible APIs.
//
// The adapter reuses the openai package's request shape and SSE reader.
// It works with hosted compatible services and local servers alike:
//
//   - Mistral (https://api.mistral.ai/v1)
//   - Groq (https://api.groq.com/openai/v1)
//   - DeepSeek (https://api.deepseek.com/v1)
//   - LM Studio (http://localhost:1234/v1)
//   - vLLM (http://localhost:8000/v1)
//
// A base URL is required. The API key is optional; keyless adapters still
// report credentials so local servers are listed as usable.
//
// Unlike the openai adapter, no model is treated as a reasoning model, so
// temperature is always forwarded.
package generic
