package handlers

import (
	"context"

	"mercator-hq/switchboard/pkg/dispatch"
	"mercator-hq/switchboard/pkg/providers"
	"mercator-hq/switchboard/pkg/settings"
	"mercator-hq/switchboard/pkg/stream"
)

// Dispatcher runs fan-out requests.
type Dispatcher interface {
	Execute(ctx context.Context, req dispatch.Request) (*dispatch.Envelope, error)
	Stream(ctx context.Context, req dispatch.Request) (<-chan stream.Event, <-chan *dispatch.Envelope, error)
}

// SettingsView resolves provider settings for listing.
type SettingsView interface {
	Providers(ctx context.Context) []string
	Effective(ctx context.Context, provider string, ov *settings.Overrides) settings.Effective
}

// AdapterView reports which providers have a configured adapter.
type AdapterView interface {
	Get(name string) (providers.Adapter, error)
	Names() []string
}
