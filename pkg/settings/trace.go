package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Source names the layer a value came from.
type Source string

const (
	SourceOverride Source = "override"
	SourceCache    Source = "cache"
	SourceStore    Source = "store"
	SourceDefault  Source = "default"
	// SourceNone means no layer had a value; callers apply their own
	// policy constant.
	SourceNone     Source = "none"
)

// Reasons a layer was skipped.
var (
	ErrNoOverride     = errors.New("no override supplied")
	ErrNotOverridable = errors.New("field does not accept overrides")
	ErrCacheMiss      = errors.New("not cached")
	ErrCacheExpired   = errors.New("cache entry expired")
	ErrBackoff        = errors.New("store read suppressed after recent failure")
	ErrNoDefault      = errors.New("no compiled default")
)

// Attempt is the result of consulting one layer. Err is nil on a hit.
type Attempt struct {
	Source   Source
	Value    any
	Err      error
	Duration time.Duration
}

// Hit reports whether the layer produced the value.
func (a Attempt) Hit() bool {
	return a.Err == nil
}

func (a Attempt) String() string {
	if a.Err != nil {
		return fmt.Sprintf("%s: %v", a.Source, a.Err)
	}
	return fmt.Sprintf("%s: %v", a.Source, a.Value)
}

// Trace is the ordered list of layers consulted for one resolution.
type Trace []Attempt

func (t Trace) String() string {
	parts := make([]string, len(t))
	for i, a := range t {
		parts[i] = a.String()
	}
	return strings.Join(parts, " -> ")
}

// Failures returns the attempts that missed because of an error rather
// than an intentional skip.
func (t Trace) Failures() []Attempt {
	var out []Attempt
	for _, a := range t {
		if a.Err == nil {
			continue
		}
		switch {
		case errors.Is(a.Err, ErrNoOverride),
			errors.Is(a.Err, ErrNotOverridable),
			errors.Is(a.Err, ErrCacheMiss),
			errors.Is(a.Err, ErrCacheExpired):
			continue
		}
		out = append(out, a)
	}
	return out
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Scope  Scope
	Value  any
	Source Source
	Trace  Trace
}

// Int returns the value as an int.
func (r Resolution) Int() (int, bool) {
	v, ok := r.Value.(int)
	return v, ok
}

// Float returns the value as a float64.
func (r Resolution) Float() (float64, bool) {
	v, ok := r.Value.(float64)
	return v, ok
}

// Bool returns the value as a bool.
func (r Resolution) Bool() (bool, bool) {
	v, ok := r.Value.(bool)
	return v, ok
}

// String returns the value as a string.
func (r Resolution) String() (string, bool) {
	v, ok := r.Value.(string)
	return v, ok
}
