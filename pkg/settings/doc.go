// Package settings resolves per-provider operating limits.
//
// Every value goes through the same chain, first hit wins:
//
//  1. a caller override, for the fields that allow one (model, timeout,
//     temperature)
//  2. a cached store row younger than the TTL (5 minutes by default)
//  3. a synchronous store read, which fills the cache
//  4. the compiled default table
//
// A failing store read never surfaces as an error. It is logged with the
// scope key, remembered for a short backoff so an outage does not put a
// store round trip on every request, and the chain moves on. The attempts
// are returned as a Trace:
//
//	res := resolver.Resolve(ctx, settings.Scope{Provider: "openai", Field: settings.FieldMaxOutputCap}, nil)
//	fmt.Println(res.Value, res.Source, res.Trace)
//	// 16384 default override: field does not accept overrides -> cache: not cached -> store: ... -> default: 16384
//
// Concurrent misses for one provider share a single store read. Entries are
// dropped early by Invalidate, normally driven by Watch over a Notifier,
// and a Refresher can re-read the store on a cron schedule.
//
// Store implementations live in package settings/store.
package settings
