package middleware

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// StartTimeKey stores the request start time for latency calculation.
// Request ID and caller identity live in the logging package so every
// *Context log call picks them up.
const StartTimeKey contextKey = "start_time"
