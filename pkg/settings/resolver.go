package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mercator-hq/switchboard/pkg/config"
	"mercator-hq/switchboard/pkg/telemetry/logging"
	"mercator-hq/switchboard/pkg/telemetry/metrics"
)

var errNoStore = errors.New("no settings store configured")

// Options configures a Resolver. Zero durations take the package config
// defaults.
type Options struct {
	CacheTTL       time.Duration
	StoreTimeout   time.Duration
	FailureBackoff time.Duration

	// Defaults replaces the compiled default table when non-nil.
	Defaults map[string]Descriptor

	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// OptionsFromConfig maps the resolver config section.
func OptionsFromConfig(cfg config.ResolverConfig) Options {
	return Options{
		CacheTTL:       cfg.CacheTTL,
		StoreTimeout:   cfg.StoreTimeout,
		FailureBackoff: cfg.FailureBackoff,
	}
}

type entry struct {
	desc      Descriptor
	fetchedAt time.Time
}

type failure struct {
	at  time.Time
	err error
}

// generation identifies the cache state a store read started from. A read
// whose generation is stale by the time it returns is not cached.
type generation struct {
	epoch    uint64
	provider uint64
}

// Resolver resolves provider settings through the chain override, cache,
// store, compiled default. It never returns an error: a failing layer is
// recorded in the Trace and the next layer is consulted.
type Resolver struct {
	store          Store
	defaults       map[string]Descriptor
	ttl            time.Duration
	storeTimeout   time.Duration
	failureBackoff time.Duration
	logger         *slog.Logger
	metrics        *metrics.Collector
	now            func() time.Time

	mu          sync.RWMutex
	entries     map[string]entry
	failures    map[string]failure
	generations map[string]uint64
	epoch       uint64

	group singleflight.Group
}

// NewResolver creates a Resolver over store. A nil store resolves from
// overrides and defaults only.
func NewResolver(store Store, opts Options) *Resolver {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = config.DefaultCacheTTL
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = config.DefaultStoreTimeout
	}
	if opts.FailureBackoff <= 0 {
		opts.FailureBackoff = config.DefaultFailureBackoff
	}
	if opts.Defaults == nil {
		opts.Defaults = DefaultTable()
	}

	return &Resolver{
		store:          store,
		defaults:       opts.Defaults,
		ttl:            opts.CacheTTL,
		storeTimeout:   opts.StoreTimeout,
		failureBackoff: opts.FailureBackoff,
		logger:         logging.Component(opts.Logger, "settings.resolver"),
		metrics:        opts.Metrics,
		now:            time.Now,
		entries:        make(map[string]entry),
		failures:       make(map[string]failure),
		generations:    make(map[string]uint64),
	}
}

// Resolve returns the value of one field for one provider. The value is nil
// only when Source is SourceNone.
func (r *Resolver) Resolve(ctx context.Context, scope Scope, ov *Overrides) Resolution {
	res := Resolution{Scope: scope, Source: SourceNone}

	if v, ok := ov.get(scope.Field); ok {
		res.Value = v
		res.Source = SourceOverride
		res.Trace = Trace{{Source: SourceOverride, Value: v}}
		r.metrics.RecordResolution(string(scope.Field), string(SourceOverride))
		return res
	}
	skip := ErrNoOverride
	if !scope.Field.Overridable() {
		skip = ErrNotOverridable
	}
	res.Trace = Trace{{Source: SourceOverride, Err: skip}}

	desc, source, trace := r.lookup(ctx, scope.Provider, scope.String())
	for _, a := range trace {
		if d, ok := a.Value.(Descriptor); ok {
			a.Value = d.Get(scope.Field)
		}
		res.Trace = append(res.Trace, a)
	}

	res.Source = source
	if source != SourceNone {
		res.Value = desc.Get(scope.Field)
	}
	r.metrics.RecordResolution(string(scope.Field), string(source))
	return res
}

// Effective is a provider's full descriptor with overrides applied.
type Effective struct {
	Descriptor Descriptor

	// Source is the layer the row came from.
	Source Source

	// Overridden lists the fields the caller supplied.
	Overridden []Field

	Trace Trace
}

// Found reports whether any layer knew the provider.
func (e Effective) Found() bool {
	return e.Source != SourceNone
}

// Effective resolves every field of a provider in one pass.
func (r *Resolver) Effective(ctx context.Context, provider string, ov *Overrides) Effective {
	desc, source, trace := r.lookup(ctx, provider, provider+".*")
	eff := Effective{Descriptor: desc, Source: source, Trace: trace}
	if source == SourceNone {
		eff.Descriptor = Descriptor{Name: provider}
	}

	if v, ok := ov.get(FieldDefaultModel); ok {
		eff.Descriptor.DefaultModel = v.(string)
		eff.Overridden = append(eff.Overridden, FieldDefaultModel)
	}
	if v, ok := ov.get(FieldTimeoutSeconds); ok {
		eff.Descriptor.TimeoutSeconds = v.(int)
		eff.Overridden = append(eff.Overridden, FieldTimeoutSeconds)
	}
	if v, ok := ov.get(FieldTemperature); ok {
		eff.Descriptor.Temperature = v.(float64)
		eff.Overridden = append(eff.Overridden, FieldTemperature)
	}

	r.metrics.RecordResolution("descriptor", string(source))
	return eff
}

// lookup walks cache, store and default for a provider row. The trace
// values are Descriptors.
func (r *Resolver) lookup(ctx context.Context, provider, scopeKey string) (Descriptor, Source, Trace) {
	var trace Trace

	now := r.now()
	r.mu.RLock()
	cached, ok := r.entries[provider]
	failed, hasFailure := r.failures[provider]
	r.mu.RUnlock()

	switch {
	case ok && now.Sub(cached.fetchedAt) < r.ttl:
		trace = append(trace, Attempt{Source: SourceCache, Value: cached.desc})
		return cached.desc, SourceCache, trace
	case ok:
		trace = append(trace, Attempt{Source: SourceCache, Err: ErrCacheExpired})
	default:
		trace = append(trace, Attempt{Source: SourceCache, Err: ErrCacheMiss})
	}

	switch {
	case r.store == nil:
		trace = append(trace, Attempt{Source: SourceStore, Err: errNoStore})
	case hasFailure && now.Sub(failed.at) < r.failureBackoff:
		trace = append(trace, Attempt{Source: SourceStore, Err: fmt.Errorf("%w: %v", ErrBackoff, failed.err)})
		r.metrics.RecordStoreRead("suppressed", 0)
	default:
		start := time.Now()
		desc, err := r.fetch(ctx, provider)
		attempt := Attempt{Source: SourceStore, Duration: time.Since(start)}
		if err == nil {
			attempt.Value = desc
			trace = append(trace, attempt)
			return desc, SourceStore, trace
		}
		attempt.Err = err
		trace = append(trace, attempt)
		r.logger.WarnContext(ctx, "settings store read failed, falling back",
			"scope", scopeKey,
			"error", err,
		)
	}

	if desc, ok := r.defaults[provider]; ok {
		trace = append(trace, Attempt{Source: SourceDefault, Value: desc})
		return desc, SourceDefault, trace
	}
	trace = append(trace, Attempt{Source: SourceDefault, Err: ErrNoDefault})
	return Descriptor{}, SourceNone, trace
}

// fetch reads one row through the single-flight group. The shared read is
// detached from the first caller's cancellation and bounded by the store
// timeout, so a caller giving up does not fail the others.
func (r *Resolver) fetch(ctx context.Context, provider string) (Descriptor, error) {
	gen := r.generation(provider)

	ch := r.group.DoChan(provider, func() (any, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.storeTimeout)
		defer cancel()

		start := time.Now()
		desc, err := r.store.ReadProvider(readCtx, provider)
		if err == nil {
			err = desc.Validate()
			if err == nil && desc.Name != provider {
				err = &MalformedError{Provider: provider, Reason: fmt.Sprintf("row is named %q", desc.Name)}
			}
		}
		r.metrics.RecordStoreRead(readOutcome(err), time.Since(start))

		if err != nil {
			err = &StoreError{Provider: provider, Err: err}
		}
		r.fill(provider, gen, desc, err)
		return desc, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Descriptor{}, res.Err
		}
		return res.Val.(Descriptor), nil
	case <-ctx.Done():
		return Descriptor{}, ctx.Err()
	}
}

func readOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func (r *Resolver) generation(provider string) generation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return generation{epoch: r.epoch, provider: r.generations[provider]}
}

// fill records a store read unless the provider was invalidated while the
// read was in flight.
func (r *Resolver) fill(provider string, gen generation, desc Descriptor, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if (generation{epoch: r.epoch, provider: r.generations[provider]}) != gen {
		r.logger.Debug("discarding stale settings read", "provider", provider)
		return
	}

	if err != nil {
		r.failures[provider] = failure{at: r.now(), err: err}
		return
	}
	delete(r.failures, provider)
	r.entries[provider] = entry{desc: desc, fetchedAt: r.now()}
	r.metrics.SetCacheEntries(len(r.entries))
}

// Invalidate drops the cached row and failure backoff for one provider.
func (r *Resolver) Invalidate(provider string) {
	r.invalidate(provider, "manual")
}

func (r *Resolver) invalidate(provider, trigger string) {
	r.mu.Lock()
	delete(r.entries, provider)
	delete(r.failures, provider)
	r.generations[provider]++
	n := len(r.entries)
	r.mu.Unlock()

	r.group.Forget(provider)
	r.metrics.RecordInvalidation(trigger)
	r.metrics.SetCacheEntries(n)
	r.logger.Debug("settings invalidated", "provider", provider, "trigger", trigger)
}

// InvalidateAll empties the cache. Reads already in flight finish but are
// not cached.
func (r *Resolver) InvalidateAll() {
	r.invalidateAll("manual")
}

func (r *Resolver) invalidateAll(trigger string) {
	r.mu.Lock()
	r.entries = make(map[string]entry)
	r.failures = make(map[string]failure)
	r.epoch++
	r.mu.Unlock()

	r.metrics.RecordInvalidation(trigger)
	r.metrics.SetCacheEntries(0)
	r.logger.Debug("settings cache cleared", "trigger", trigger)
}

// Providers returns every provider name known to the store, the cache or
// the default table, sorted.
func (r *Resolver) Providers(ctx context.Context) []string {
	seen := make(map[string]struct{}, len(r.defaults))
	for name := range r.defaults {
		seen[name] = struct{}{}
	}

	r.mu.RLock()
	for name := range r.entries {
		seen[name] = struct{}{}
	}
	r.mu.RUnlock()

	if rows, err := r.list(ctx); err != nil {
		r.logger.WarnContext(ctx, "settings store list failed, using known providers", "error", err)
	} else {
		for _, row := range rows {
			seen[row.Name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnabledProviders returns the providers whose resolved row is enabled,
// sorted by name.
func (r *Resolver) EnabledProviders(ctx context.Context) []string {
	var enabled []string
	for _, name := range r.Providers(ctx) {
		if eff := r.Effective(ctx, name, nil); eff.Found() && eff.Descriptor.Enabled {
			enabled = append(enabled, name)
		}
	}
	return enabled
}

func (r *Resolver) list(ctx context.Context) ([]Descriptor, error) {
	if r.store == nil {
		return nil, errNoStore
	}
	ctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()
	return r.store.ListProviders(ctx)
}

// Refresh re-reads every row from the store, replacing cached entries and
// dropping expired ones the store no longer has. It returns the number of
// rows cached.
func (r *Resolver) Refresh(ctx context.Context) (int, error) {
	r.mu.RLock()
	epoch := r.epoch
	gens := make(map[string]uint64, len(r.generations))
	for name, g := range r.generations {
		gens[name] = g
	}
	r.mu.RUnlock()

	rows, err := r.list(ctx)
	if err != nil {
		return 0, &StoreError{Provider: "*", Err: err}
	}

	now := r.now()
	fresh := make(map[string]Descriptor, len(rows))
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			r.logger.Warn("skipping malformed settings row", "provider", row.Name, "error", err)
			continue
		}
		fresh[row.Name] = row
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.epoch != epoch {
		return 0, nil
	}
	cached := 0
	for name, row := range fresh {
		if r.generations[name] != gens[name] {
			continue
		}
		r.entries[name] = entry{desc: row, fetchedAt: now}
		delete(r.failures, name)
		cached++
	}
	for name, e := range r.entries {
		if _, ok := fresh[name]; !ok && now.Sub(e.fetchedAt) >= r.ttl {
			delete(r.entries, name)
		}
	}
	r.metrics.SetCacheEntries(len(r.entries))
	return cached, nil
}

// CachedProviders returns the names with a cache entry, sorted.
func (r *Resolver) CachedProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ping checks the store when it supports it.
func (r *Resolver) Ping(ctx context.Context) error {
	if r.store == nil {
		return errNoStore
	}
	if p, ok := r.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	_, err := r.list(ctx)
	return err
}
