// Package handlers provides the HTTP handlers of the fan-out gateway.
//
//   - FanoutHandler: POST /v1/fanout, buffered envelope
//   - StreamHandler: POST /v1/fanout/stream, Server-Sent Events
//   - ProvidersHandler: GET /v1/providers
//
// Health checks are not handlers here. SettingsStoreCheck,
// AdaptersCheck and EnabledProvidersCheck return check functions for the
// telemetry health checker, which owns /health and /ready.
//
// Handlers depend on small interfaces (Dispatcher, SettingsView,
// AdapterView) so they can be tested without providers.
package handlers
