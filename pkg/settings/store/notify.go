package store

import (
	"encoding/json"
	"strings"
	"time"

	"mercator-hq/switchboard/pkg/settings"
)

// parsePayload decodes a change notification payload. A payload is either
// a bare provider name or a JSON object with a "provider" key; an empty
// payload means every row may have changed.
func parsePayload(payload string, at time.Time) settings.Change {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "{") {
		var body struct {
			Provider string `json:"provider"`
		}
		if err := json.Unmarshal([]byte(payload), &body); err != nil {
			return settings.Change{At: at}
		}
		payload = body.Provider
	}
	return settings.Change{Provider: payload, At: at}
}
