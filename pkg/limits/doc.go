// Package limits enforces per-provider operating limits ahead of dispatch.
//
// The output budget sent to a provider is min(requested, cap), where the cap
// comes from the settings resolver. If no layer knows the provider,
// DefaultOutputCap applies. A non-positive request stands for
// DefaultOutputCap as well, so an unset budget is min(4096, cap). Clamping is
// reported, never refused.
//
//	enforcer := limits.NewEnforcer(resolver, logger, collector)
//	effective, clamped := enforcer.Clamp(ctx, "anthropic", 50000) // 8192, true
//
// Admit implements the local requests-per-minute gate with a token bucket
// (golang.org/x/time/rate) per provider. It never queues.
package limits
