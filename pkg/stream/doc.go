// Package stream normalizes raw provider chunks into a uniform event
// sequence: content deltas coalesced on a short flush window, a single usage
// report, and one terminal Completed event carrying the normalized finish
// reason and whether the output was truncated by the token cap.
//
// Failure events are built by the dispatcher through Normalizer.Failed once
// it has decided a task will not be retried.
package stream
