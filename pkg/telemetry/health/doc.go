// Package health provides liveness and readiness probes for Switchboard.
//
// Liveness answers as long as the process serves HTTP. Readiness runs the
// registered checks concurrently, each under its own timeout:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.Register("providers", registryNotEmpty)
//	checker.RegisterOptional("settings_store", store.Ping)
//	checker.Mount(mux, cfg.Telemetry.Health, health.BuildInfo{Version: version})
//
// A failing critical check reports "unavailable" with 503. A failing optional
// check reports "degraded" with 200, since requests are still served.
package health
