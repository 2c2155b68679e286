package dispatch

import (
	"time"

	"mercator-hq/switchboard/pkg/providers"
)

// Status is a task's position in its lifecycle:
//
//	pending -> running -> succeeded | failed | timed-out
//
// Terminal states are final.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed-out"
)

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusTimedOut
}

// Task is the record of one provider call within a fan-out.
type Task struct {
	Provider string
	Model    string

	RequestedMaxTokens int
	EffectiveMaxTokens int
	Clamped            bool

	StartedAt  time.Time
	FinishedAt time.Time
	Status     Status

	Content      string
	Usage        providers.Usage
	HasUsage     bool
	FinishReason string
	Truncated    bool
	Attempts     int

	ErrorKind providers.ErrorKind
	// Error is the failure message verbatim, or the kind when the failure
	// carried no message.
	Error string
}

// Latency is the time between start and finish, or zero for a task that
// never started.
func (t *Task) Latency() time.Duration {
	if t.StartedAt.IsZero() || t.FinishedAt.IsZero() {
		return 0
	}
	return t.FinishedAt.Sub(t.StartedAt)
}

func (t *Task) start(at time.Time) bool {
	if t.Status != StatusPending {
		return false
	}
	t.Status = StatusRunning
	t.StartedAt = at
	return true
}

func (t *Task) succeed(at time.Time) bool {
	if t.Status.Terminal() {
		return false
	}
	t.Status = StatusSucceeded
	t.FinishedAt = at
	return true
}

func (t *Task) fail(kind providers.ErrorKind, message string, at time.Time) bool {
	return t.finishWithError(StatusFailed, kind, message, at)
}

func (t *Task) timeOut(message string, at time.Time) bool {
	return t.finishWithError(StatusTimedOut, providers.KindTimeout, message, at)
}

func (t *Task) finishWithError(status Status, kind providers.ErrorKind, message string, at time.Time) bool {
	if t.Status.Terminal() {
		return false
	}
	if t.StartedAt.IsZero() {
		t.StartedAt = at
	}
	t.Status = status
	t.FinishedAt = at
	t.ErrorKind = kind
	t.Error = message
	if t.Error == "" {
		t.Error = string(kind)
	}
	return true
}
