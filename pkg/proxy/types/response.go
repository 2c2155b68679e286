package types

import "mercator-hq/switchboard/pkg/settings"

// ProviderInfo is one entry of GET /v1/providers. Enablement comes from the
// settings resolver and credentials from the adapter registry; neither
// implies the other.
type ProviderInfo struct {
	Name           string          `json:"name"`
	Type           string          `json:"type,omitempty"`
	Enabled        bool            `json:"enabled"`
	HasCredentials bool            `json:"has_credentials"`
	DefaultModel   string          `json:"default_model"`
	MaxOutputCap   int             `json:"max_output_cap"`
	Source         settings.Source `json:"source"`
}

// StreamDone is the final SSE data line.
const StreamDone = "[DONE]"

// SSE event names besides the per-provider stream events.
const (
	EventEnvelope = "envelope"
	EventError    = "error"
)
