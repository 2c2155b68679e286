package limits

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"mercator-hq/switchboard/pkg/providers"
	"mercator-hq/switchboard/pkg/settings"
	"mercator-hq/switchboard/pkg/telemetry/logging"
	"mercator-hq/switchboard/pkg/telemetry/metrics"
)

// SettingsResolver is the part of settings.Resolver the enforcer needs.
type SettingsResolver interface {
	Resolve(ctx context.Context, scope settings.Scope, ov *settings.Overrides) settings.Resolution
}

// Enforcer applies per-provider operating limits before dispatch: it
// clamps the output budget to the provider's cap and gates calls on the
// provider's requests-per-minute allowance.
//
// Neither check blocks. A clamp only lowers the budget; an exhausted
// allowance fails the call immediately as rate limited.
type Enforcer struct {
	resolver SettingsResolver
	logger   *slog.Logger
	metrics  *metrics.Collector

	mu       sync.Mutex
	limiters map[string]*rpmLimiter
}

type rpmLimiter struct {
	rpm     int
	limiter *rate.Limiter
}

// NewEnforcer creates an Enforcer.
func NewEnforcer(resolver SettingsResolver, logger *slog.Logger, m *metrics.Collector) *Enforcer {
	return &Enforcer{
		resolver: resolver,
		logger:   logging.Component(logger, "limits"),
		metrics:  m,
		limiters: make(map[string]*rpmLimiter),
	}
}

// Clamp returns the output budget to send to provider and whether the
// caller's request was lowered.
func (e *Enforcer) Clamp(ctx context.Context, provider string, requested int) (int, bool) {
	d := e.Decide(ctx, provider, requested)
	return d.Effective, d.Clamped
}

// Decide resolves the provider's cap and clamps requested to it.
func (e *Enforcer) Decide(ctx context.Context, provider string, requested int) Decision {
	requested = defaultRequest(requested)
	d := Decision{Provider: provider, Requested: requested, CapSource: settings.SourceNone}

	res := e.resolver.Resolve(ctx, settings.Scope{Provider: provider, Field: settings.FieldMaxOutputCap}, nil)
	if v, ok := res.Int(); ok && v > 0 {
		d.Cap = v
		d.CapSource = res.Source
	} else {
		d.Cap = DefaultOutputCap
	}

	d.Effective, d.Clamped = ClampTo(requested, d.Cap)
	if d.Clamped {
		e.metrics.RecordClamp(provider)
		e.logger.InfoContext(ctx, "output budget clamped",
			"provider", provider,
			"requested", requested,
			"effective", d.Effective,
			"cap_source", d.CapSource,
		)
	}
	return d
}

// Admit takes one request from the provider's per-minute allowance. A
// non-positive rpm means unlimited. When the allowance is exhausted it
// returns a local *providers.RateLimitError without waiting.
func (e *Enforcer) Admit(provider string, rpm int) error {
	if rpm <= 0 {
		return nil
	}

	limiter := e.limiter(provider, rpm)
	if limiter.Allow() {
		return nil
	}

	e.metrics.RecordLocalRateLimit(provider)
	return &providers.RateLimitError{
		Provider:   provider,
		RetryAfter: time.Minute / time.Duration(rpm),
		Message:    "local requests-per-minute allowance exhausted",
		Local:      true,
	}
}

// limiter returns the provider's limiter, adjusting it when the resolved
// rpm changed since it was created.
func (e *Enforcer) limiter(provider string, rpm int) *rate.Limiter {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.limiters[provider]
	if !ok {
		l = &rpmLimiter{rpm: rpm, limiter: rate.NewLimiter(perMinute(rpm), rpm)}
		e.limiters[provider] = l
		return l.limiter
	}
	if l.rpm != rpm {
		now := time.Now()
		l.limiter.SetLimitAt(now, perMinute(rpm))
		l.limiter.SetBurstAt(now, rpm)
		l.rpm = rpm
	}
	return l.limiter
}

func perMinute(rpm int) rate.Limit {
	return rate.Every(time.Minute / time.Duration(rpm))
}
