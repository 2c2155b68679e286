package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"mercator-hq/switchboard/pkg/config"
	"mercator-hq/switchboard/pkg/settings"
	"mercator-hq/switchboard/pkg/telemetry/logging"
)

// RedisNotifier fans change notifications out over a redis pub/sub
// channel, for deployments where several gateway instances share one store
// that cannot notify by itself.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// NewRedisNotifier creates a notifier. The connection is made on first use.
func NewRedisNotifier(cfg config.RedisConfig, channel string, logger *slog.Logger) *RedisNotifier {
	return &RedisNotifier{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		channel: channel,
		logger:  logging.Component(logger, "settings.redis_notifier"),
	}
}

// Subscribe implements settings.Notifier.
func (n *RedisNotifier) Subscribe(ctx context.Context) (<-chan settings.Change, error) {
	pubsub := n.client.Subscribe(ctx, n.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %q: %w", n.channel, err)
	}

	out := make(chan settings.Change, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				select {
				case out <- parsePayload(msg.Payload, time.Now()):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	n.logger.Info("subscribed to settings changes", "channel", n.channel)
	return out, nil
}

// Publish announces a change to every subscriber. An empty provider asks
// subscribers to drop everything.
func (n *RedisNotifier) Publish(ctx context.Context, provider string) error {
	if err := n.client.Publish(ctx, n.channel, provider).Err(); err != nil {
		return fmt.Errorf("failed to publish settings change: %w", err)
	}
	return nil
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
