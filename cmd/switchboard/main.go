// Switchboard is a multi-provider fan-out gateway for LLM prompts.
//
// It sends one prompt to several providers concurrently, enforces each
// provider's output cap and timeout from the settings store, and returns
// either one aggregated envelope or a single SSE stream interleaving every
// provider's deltas.
//
// Usage:
//
//	# Start the gateway
//	switchboard run --config switchboard.yaml
//
//	# Load provider settings into the store
//	switchboard seed --file providers.yaml
//
//	# Show where a setting comes from
//	switchboard resolve openai --field max_output_cap
//
//	# Fan out a prompt without starting the server
//	switchboard ask "Summarize RFC 9110 in one line" --engine openai --engine anthropic
package main

func main() {
	Execute()
}
