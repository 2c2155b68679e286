// Package dispatch fans one request out to several providers and folds the
// results into a single envelope.
//
// Each target becomes a Task driven by its own goroutine:
//
//	pending -> running -> succeeded | failed | timed-out
//
// A task resolves its provider settings, is clamped and admitted by the
// limit enforcer, calls the adapter under its own timeout, and normalizes
// the output through package stream. Transient failures are retried by the
// RetryPolicy until the first event has been emitted; rate limits are never
// retried. Failures, including panics, stay inside the task.
//
// Execute waits for every task and returns the Envelope. Stream does the
// same but forwards normalized events as they happen, then delivers the
// Envelope. Either way the envelope lists tasks in request order.
package dispatch
