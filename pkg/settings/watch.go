package settings

import (
	"context"
	"fmt"
)

// Watch subscribes to n and invalidates entries as changes arrive. It
// blocks until ctx is done or the feed closes. A closed feed is not an
// error: entries still expire by TTL.
func (r *Resolver) Watch(ctx context.Context, n Notifier) error {
	changes, err := n.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to settings changes: %w", err)
	}

	r.logger.Info("watching settings changes")
	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				if ctx.Err() == nil {
					r.logger.Warn("settings change feed closed, relying on cache TTL")
				}
				return nil
			}
			if change.Provider == "" {
				r.invalidateAll("notify")
				continue
			}
			r.invalidate(change.Provider, "notify")
		}
	}
}
