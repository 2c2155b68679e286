package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Overall statuses.
const (
	StatusOK          = "ok"
	StatusReady       = "ready"
	StatusDegraded    = "degraded"
	StatusUnavailable = "unavailable"
)

// Per-check statuses.
const (
	CheckPassed = "ok"
	CheckFailed = "failed"
)

// CheckFunc reports nil when the component is healthy.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status     string  `json:"status"`
	Critical   bool    `json:"critical"`
	Message    string  `json:"message,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// Report is the body of the liveness and readiness endpoints.
type Report struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

type registered struct {
	fn       CheckFunc
	critical bool
}

// Checker runs registered component checks.
//
// A failing critical check makes the service unavailable. A failing optional
// check only degrades it: the service keeps answering because some other
// layer covers for the component (the settings store, for example, is backed
// by the compiled default table).
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]registered
	timeout time.Duration
	now     func() time.Time
}

// New creates a Checker. Each check gets timeout; zero means 2 seconds.
func New(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{
		checks:  make(map[string]registered),
		timeout: timeout,
		now:     time.Now,
	}
}

// Register adds a critical check, replacing any check with the same name.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.register(name, fn, true)
}

// RegisterOptional adds a check whose failure degrades readiness without
// failing it.
func (c *Checker) RegisterOptional(name string, fn CheckFunc) {
	c.register(name, fn, false)
}

func (c *Checker) register(name string, fn CheckFunc, critical bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = registered{fn: fn, critical: critical}
}

// Unregister removes a check.
func (c *Checker) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Names returns the registered check names, sorted.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Liveness reports that the process is serving.
func (c *Checker) Liveness() Report {
	return Report{Status: StatusOK, Timestamp: c.now()}
}

// Readiness runs every check concurrently and folds the results.
func (c *Checker) Readiness(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]registered, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(checks))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := c.run(ctx, check)
			mu.Lock()
			results[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := StatusReady
	for _, result := range results {
		if result.Status == CheckPassed {
			continue
		}
		if result.Critical {
			status = StatusUnavailable
			break
		}
		status = StatusDegraded
	}

	return Report{Status: status, Checks: results, Timestamp: c.now()}
}

func (c *Checker) run(ctx context.Context, check registered) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- check.fn(ctx)
	}()

	result := CheckResult{Status: CheckPassed, Critical: check.critical}
	select {
	case err := <-done:
		if err != nil {
			result.Status = CheckFailed
			result.Message = err.Error()
		}
	case <-ctx.Done():
		result.Status = CheckFailed
		result.Message = "check timed out after " + c.timeout.String()
	}
	result.DurationMS = float64(time.Since(start).Microseconds()) / 1000
	return result
}
