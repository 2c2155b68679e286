package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/switchboard/pkg/config"
	"mercator-hq/switchboard/pkg/limits"
	"mercator-hq/switchboard/pkg/providers"
	"mercator-hq/switchboard/pkg/settings"
	"mercator-hq/switchboard/pkg/stream"
	"mercator-hq/switchboard/pkg/telemetry/logging"
	"mercator-hq/switchboard/pkg/telemetry/metrics"
	"mercator-hq/switchboard/pkg/telemetry/tracing"
)

// deadlineGrace lets tasks report their own timeouts before an inferred
// fan-out deadline fires.
const deadlineGrace = 250 * time.Millisecond

// Fan-out modes, used in metrics and spans.
const (
	ModeBuffered = "buffered"
	ModeStream   = "stream"
)

// Adapters looks up provider adapters by name. *providers.Registry
// implements it.
type Adapters interface {
	Get(name string) (providers.Adapter, error)
}

// Resolver is the part of settings.Resolver the dispatcher needs.
type Resolver interface {
	Effective(ctx context.Context, provider string, ov *settings.Overrides) settings.Effective
	EnabledProviders(ctx context.Context) []string
}

// Limiter is the part of limits.Enforcer the dispatcher needs.
type Limiter interface {
	Decide(ctx context.Context, provider string, requested int) limits.Decision
	Admit(provider string, rpm int) error
}

// Options configures a Dispatcher.
type Options struct {
	// DefaultTimeout applies when no provider timeout resolves.
	DefaultTimeout time.Duration

	// MaxTargets bounds the providers in one fan-out; zero is unlimited.
	MaxTargets int

	FlushInterval time.Duration
	EventBuffer   int

	Retry RetryPolicy
	Usage UsageSink

	Logger  *slog.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
}

// OptionsFromConfig maps the dispatch and stream sections onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DefaultTimeout: cfg.Dispatch.DefaultTimeout,
		MaxTargets:     cfg.Dispatch.MaxTargets,
		FlushInterval:  cfg.Stream.FlushInterval,
		EventBuffer:    cfg.Stream.EventBuffer,
		Retry:          RetryPolicyFromConfig(cfg.Dispatch),
	}
}

// Dispatcher fans a request out to providers concurrently.
//
// Every target runs in its own goroutine under its own timeout. A failing,
// slow or panicking provider only affects its own task: the join waits for
// every task to settle (or the fan-out deadline) and the envelope keeps
// every partial result in request order.
type Dispatcher struct {
	adapters Adapters
	resolver Resolver
	limiter  Limiter
	opts     Options

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	now     func() time.Time
}

// New creates a Dispatcher.
func New(adapters Adapters, resolver Resolver, limiter Limiter, opts Options) *Dispatcher {
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = config.DefaultDispatchTimeout
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = config.DefaultEventBuffer
	}
	if opts.Usage == nil {
		opts.Usage = LogUsageSink{Logger: logging.Component(opts.Logger, "usage")}
	}
	return &Dispatcher{
		adapters: adapters,
		resolver: resolver,
		limiter:  limiter,
		opts:     opts,
		logger:   logging.Component(opts.Logger, "dispatch"),
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
		now:      time.Now,
	}
}

// plan is everything resolved for one task before it launches.
type plan struct {
	task        Task
	timeout     time.Duration
	retries     int
	rpm         int
	temperature *float64

	// err fails the task without calling the provider.
	err error
}

// Execute runs a buffered fan-out and returns the aggregated envelope.
// Only an invalid request or an empty target list returns an error;
// provider failures are reported inside the envelope.
func (d *Dispatcher) Execute(ctx context.Context, req Request) (*Envelope, error) {
	plans, err := d.prepare(ctx, &req)
	if err != nil {
		return nil, err
	}
	return d.join(ctx, req, plans, ModeBuffered, nil), nil
}

// Stream runs a fan-out and delivers normalized events as they are
// produced. The event channel is closed once every task has settled, after
// which the envelope channel yields the aggregated envelope.
func (d *Dispatcher) Stream(ctx context.Context, req Request) (<-chan stream.Event, <-chan *Envelope, error) {
	plans, err := d.prepare(ctx, &req)
	if err != nil {
		return nil, nil, err
	}

	events := make(chan stream.Event, d.opts.EventBuffer)
	result := make(chan *Envelope, 1)

	go func() {
		defer close(result)
		env := d.join(ctx, req, plans, ModeStream, func(e stream.Event) {
			select {
			case events <- e:
			case <-ctx.Done():
			}
		})
		close(events)
		result <- env
	}()

	return events, result, nil
}

// prepare validates the request, expands the target list and resolves each
// target's limits.
func (d *Dispatcher) prepare(ctx context.Context, req *Request) ([]plan, error) {
	if err := req.Validate(); err != nil {
		d.metrics.RecordRejected("validation")
		return nil, err
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	targets := req.Targets
	if len(targets) == 0 {
		for _, name := range d.resolver.EnabledProviders(ctx) {
			targets = append(targets, Target{Provider: name})
		}
	}
	if len(targets) == 0 {
		d.metrics.RecordRejected("no_targets")
		return nil, ErrNoTargets
	}
	if d.opts.MaxTargets > 0 && len(targets) > d.opts.MaxTargets {
		d.metrics.RecordRejected("validation")
		return nil, &ValidationError{
			Field:   "engines",
			Message: fmt.Sprintf("at most %d providers per request, got %d", d.opts.MaxTargets, len(targets)),
		}
	}

	plans := make([]plan, len(targets))
	for i, target := range targets {
		plans[i] = d.planTarget(ctx, req, target)
	}
	return plans, nil
}

func (d *Dispatcher) planTarget(ctx context.Context, req *Request, target Target) plan {
	eff := d.resolver.Effective(ctx, target.Provider, &settings.Overrides{
		Model:       target.Model,
		Temperature: req.Temperature,
	})
	desc := eff.Descriptor

	p := plan{
		task: Task{
			Provider:           target.Provider,
			Model:              desc.DefaultModel,
			Status:             StatusPending,
		},
		retries: desc.RetryCount,
		rpm:     desc.RequestsPerMinute,
	}

	switch {
	case req.Timeout > 0:
		p.timeout = req.Timeout
	case desc.TimeoutSeconds > 0:
		p.timeout = desc.Timeout()
	default:
		p.timeout = d.opts.DefaultTimeout
	}

	if eff.Found() {
		temperature := desc.Temperature
		p.temperature = &temperature
	}

	switch {
	case !eff.Found() && target.Model == "":
		p.err = &providers.ConfigError{Provider: target.Provider, Field: "provider", Message: "unknown provider"}
		return p
	case eff.Found() && !desc.Enabled:
		p.err = &providers.ConfigError{Provider: target.Provider, Field: "enabled", Message: "provider is disabled"}
		return p
	case p.task.Model == "":
		p.err = &providers.ConfigError{Provider: target.Provider, Field: "default_model", Message: "no model requested and no default configured"}
		return p
	}

	decision := d.limiter.Decide(ctx, target.Provider, req.MaxTokens)
	p.task.RequestedMaxTokens = decision.Requested
	p.task.EffectiveMaxTokens = decision.Effective
	p.task.Clamped = decision.Clamped
	return p
}

// deadline returns when the join stops waiting.
func (d *Dispatcher) deadline(req Request, start time.Time, plans []plan) time.Time {
	if !req.Deadline.IsZero() {
		return req.Deadline
	}
	var longest time.Duration
	for _, p := range plans {
		longest = max(longest, p.timeout)
	}
	return start.Add(longest + deadlineGrace)
}

type settled struct {
	index int
	task  Task
}

// join launches every task and waits for all of them to settle or the
// deadline to pass, then aggregates.
func (d *Dispatcher) join(ctx context.Context, req Request, plans []plan, mode string, sink func(stream.Event)) *Envelope {
	start := d.now()
	ctx = logging.WithRequestID(ctx, req.ID)
	if req.Caller != "" {
		ctx = logging.WithCaller(ctx, req.Caller)
	}

	ctx, span := d.tracer.Start(ctx, "switchboard.fanout",
		trace.WithAttributes(tracing.FanoutAttributes(req.ID, req.Caller, mode, len(plans))...))
	defer span.End()

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	em := newEmitter(len(plans), sink)
	tasks := make([]*Task, len(plans))
	results := make(chan settled, len(plans))

	for i := range plans {
		task := plans[i].task
		tasks[i] = &task
		tasks[i].start(start)

		go func(i int) {
			results <- settled{index: i, task: d.run(runCtx, req, plans[i], i, em)}
		}(i)
	}

	wait := time.NewTimer(time.Until(d.deadline(req, start, plans)))
	defer wait.Stop()

	remaining := len(plans)
waiting:
	for remaining > 0 {
		select {
		case r := <-results:
			remaining--
			if !tasks[r.index].Status.Terminal() {
				*tasks[r.index] = r.task
			}

		case <-wait.C:
			d.abandon(ctx, tasks, em, "fan-out deadline elapsed before the provider finished", false)
			break waiting

		case <-ctx.Done():
			d.abandon(ctx, tasks, em, context.Cause(ctx).Error(), errors.Is(ctx.Err(), context.Canceled))
			break waiting
		}
	}
	cancelRun()
	em.close()

	env := Aggregate(start, tasks)
	env.ID = req.ID

	span.SetAttributes(tracing.OutcomeAttributes(env.Meta.Successful, env.Meta.Failed)...)
	d.metrics.RecordFanout(mode, env.Meta.TotalEngines, env.Meta.Successful, d.now().Sub(start))
	d.logger.InfoContext(ctx, "fan-out settled",
		"mode", mode,
		"targets", env.Meta.TotalEngines,
		"successful", env.Meta.Successful,
		"failed", env.Meta.Failed,
		"total_latency_ms", env.Meta.TotalLatencyMS,
	)
	return env
}

// abandon settles every task still running when the join stops waiting.
// Their goroutines are cancelled and their late results discarded.
func (d *Dispatcher) abandon(ctx context.Context, tasks []*Task, em *emitter, reason string, cancelled bool) {
	now := d.now()
	for i, t := range tasks {
		if t.Status.Terminal() {
			continue
		}
		if cancelled {
			t.fail(providers.KindCancelled, reason, now)
		} else {
			t.timeOut(reason, now)
		}
		em.abandon(i, t.Provider, t.ErrorKind, t.Error)
		d.metrics.RecordTask(t.Provider, t.Model, string(t.Status), string(t.ErrorKind), t.Latency(), 0, 0)
		d.logger.WarnContext(ctx, "provider task abandoned",
			"provider", t.Provider,
			"model", t.Model,
			"status", t.Status,
			"reason", reason,
		)
	}
}

// run drives one task to a terminal state. It never panics.
func (d *Dispatcher) run(ctx context.Context, req Request, p plan, index int, em *emitter) (task Task) {
	task = p.task
	task.start(d.now())

	ctx = logging.WithProvider(ctx, task.Provider)
	ctx = logging.WithModel(ctx, task.Model)
	ctx, span := d.tracer.Start(ctx, "switchboard.provider",
		trace.WithAttributes(tracing.TaskAttributes(task.Provider, task.Model, task.RequestedMaxTokens, task.EffectiveMaxTokens, task.Clamped)...))
	defer span.End()

	done := d.metrics.TaskStarted(task.Provider)
	defer done()

	norm := stream.New(task.Provider, d.opts.FlushInterval)
	emit := func(e stream.Event) { em.emit(index, e) }

	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "provider task panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			task.fail(providers.KindInternal, fmt.Sprintf("panic: %v", r), d.now())
		}
		if task.Status != StatusSucceeded {
			emit(norm.Failed(task.ErrorKind, task.Error))
			tracing.SetError(span, string(task.ErrorKind), task.Error)
		}
		span.SetAttributes(tracing.ResultAttributes(string(task.Status), task.Attempts, task.FinishReason, task.Truncated, task.Usage.Input, task.Usage.Output)...)
		d.metrics.RecordTask(task.Provider, task.Model, string(task.Status), string(task.ErrorKind), task.Latency(), task.Usage.Input, task.Usage.Output)
	}()

	if p.err != nil {
		task.fail(providers.ClassifyError(p.err), p.err.Error(), d.now())
		return task
	}

	adapter, err := d.adapters.Get(task.Provider)
	if err != nil {
		task.fail(providers.KindConfig, err.Error(), d.now())
		return task
	}

	if err := d.limiter.Admit(task.Provider, p.rpm); err != nil {
		task.fail(providers.KindRateLimited, err.Error(), d.now())
		return task
	}

	call := &providers.Call{
		Model:       task.Model,
		Prompt:      req.Prompt,
		MaxTokens:   task.EffectiveMaxTokens,
		Temperature: p.temperature,
		Stream:      true,
	}
	if adapter.Capabilities().OmitsTemperature(task.Model) {
		call.Temperature = nil
	}

	taskCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var result stream.Result
	attempts, err := d.opts.Retry.Do(taskCtx, p.retries, func(int) error {
		chunks, err := adapter.Dispatch(taskCtx, call)
		if err != nil {
			return retryable(err, 0)
		}
		result = norm.Run(taskCtx, chunks, emit)
		return retryable(result.Err, result.Emitted)
	}, func(attempt int, wait time.Duration, err error) {
		d.metrics.RecordRetry(task.Provider)
		d.logger.WarnContext(ctx, "provider call failed, retrying",
			"attempt", attempt,
			"backoff", wait,
			"error", err,
		)
	})
	task.Attempts = attempts
	task.Content = result.Content
	if result.Model != "" {
		task.Model = result.Model
	}

	if err != nil {
		d.settleError(ctx, taskCtx, adapter, &task, p.timeout, err)
		return task
	}

	task.Usage = result.Usage
	task.HasUsage = result.HasUsage
	task.FinishReason = result.FinishReason
	task.Truncated = result.Truncated
	task.succeed(d.now())

	if task.Truncated {
		d.metrics.RecordTruncated(task.Provider)
		d.logger.InfoContext(ctx, "provider output truncated", "max_tokens", task.EffectiveMaxTokens)
	}
	if task.HasUsage {
		d.opts.Usage.Record(ctx, UsageRecord{
			RequestID: req.ID,
			Caller:    req.Caller,
			Provider:  task.Provider,
			Model:     task.Model,
			Input:     task.Usage.Input,
			Output:    task.Usage.Output,
			At:        task.FinishedAt,
		})
	}
	return task
}

// settleError classifies a failed call. A call stopped by its own timeout
// is timed-out; a call stopped by the caller is cancelled.
func (d *Dispatcher) settleError(ctx, taskCtx context.Context, adapter providers.Adapter, task *Task, timeout time.Duration, err error) {
	now := d.now()
	switch {
	case ctx.Err() != nil:
		task.fail(providers.KindCancelled, err.Error(), now)
	case errors.Is(taskCtx.Err(), context.DeadlineExceeded):
		task.timeOut((&providers.TimeoutError{Provider: task.Provider, Timeout: timeout}).Error(), now)
	default:
		kind := adapter.TranslateError(err)
		if kind == "" {
			kind = providers.ClassifyError(err)
		}
		task.fail(kind, err.Error(), now)
	}
	d.logger.WarnContext(ctx, "provider task failed",
		"status", task.Status,
		"error_kind", task.ErrorKind,
		"attempts", task.Attempts,
		"error", err,
	)
}

// retryable marks err permanent unless it is retryable and nothing has
// been emitted for the attempt yet.
func retryable(err error, emitted int) error {
	if err == nil {
		return nil
	}
	if emitted > 0 || !providers.IsRetryable(err) {
		return permanent(err)
	}
	return err
}

// emitter serializes events from task goroutines into one sink and drops
// anything that arrives after a task was abandoned or the join finished.
type emitter struct {
	mu      sync.Mutex
	sink    func(stream.Event)
	lastSeq []int
	settled []bool
	closed  bool
}

func newEmitter(n int, sink func(stream.Event)) *emitter {
	return &emitter{
		sink:    sink,
		lastSeq: make([]int, n),
		settled: make([]bool, n),
	}
}

func (e *emitter) emit(i int, ev stream.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.settled[i] {
		return
	}
	e.lastSeq[i] = ev.Seq
	if ev.Terminal() {
		e.settled[i] = true
	}
	if e.sink != nil {
		e.sink(ev)
	}
}

// abandon emits the terminal failure for task i on its behalf.
func (e *emitter) abandon(i int, provider string, kind providers.ErrorKind, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.settled[i] {
		return
	}
	e.settled[i] = true
	if e.sink != nil {
		e.sink(stream.Event{
			Provider:  provider,
			Seq:       e.lastSeq[i] + 1,
			Type:      stream.EventFailed,
			ErrorKind: kind,
			Message:   message,
		})
	}
}

func (e *emitter) close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}
