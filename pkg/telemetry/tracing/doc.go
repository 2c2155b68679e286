// Package tracing provides OpenTelemetry tracing for Switchboard.
//
// Spans are exported over OTLP gRPC when enabled; otherwise every call is a
// noop. A fan-out opens one span and each provider task a child span
// carrying the provider, model, clamp decision, attempts and outcome.
// Incoming W3C trace context is continued by HTTPMiddleware.
package tracing
