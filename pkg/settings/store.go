package settings

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by a Store when no row exists for a provider.
var ErrNotFound = errors.New("provider settings not found")

// Store is the read side of the external settings table.
type Store interface {
	// ReadProvider returns the row for name or ErrNotFound.
	ReadProvider(ctx context.Context, name string) (Descriptor, error)

	// ListProviders returns every row.
	ListProviders(ctx context.Context) ([]Descriptor, error)

	Close() error
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Change reports that a provider row was written. An empty Provider means
// any row may have changed.
type Change struct {
	Provider string
	At       time.Time
}

// Notifier delivers best-effort change notifications. The channel closes
// when ctx is done or the feed fails permanently.
type Notifier interface {
	Subscribe(ctx context.Context) (<-chan Change, error)
}

// MalformedError reports a row that violates the descriptor invariants.
type MalformedError struct {
	Provider string
	Reason   string
}

func (e *MalformedError) Error() string {
	if e.Provider == "" {
		return "malformed provider settings: " + e.Reason
	}
	return fmt.Sprintf("malformed provider settings for %q: %s", e.Provider, e.Reason)
}

// StoreError wraps a failed store read for one provider.
type StoreError struct {
	Provider string
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("settings store read for %q failed: %v", e.Provider, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
