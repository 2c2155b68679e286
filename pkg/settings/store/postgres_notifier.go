package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"mercator-hq/switchboard/pkg/settings"
	"mercator-hq/switchboard/pkg/telemetry/logging"
)

// PostgresNotifier listens on a LISTEN/NOTIFY channel. The admin service
// is expected to NOTIFY with the provider name (or {"provider": ...}) as the
// payload after each write.
type PostgresNotifier struct {
	dsn     string
	channel string
	logger  *slog.Logger

	minReconnect time.Duration
	maxReconnect time.Duration
	pingInterval time.Duration
}

// NewPostgresNotifier creates a notifier for channel.
func NewPostgresNotifier(dsn, channel string, logger *slog.Logger) *PostgresNotifier {
	return &PostgresNotifier{
		dsn:          dsn,
		channel:      channel,
		logger:       logging.Component(logger, "settings.pg_notifier"),
		minReconnect: time.Second,
		maxReconnect: time.Minute,
		pingInterval: 90 * time.Second,
	}
}

// Subscribe implements settings.Notifier. After a reconnect an empty
// Change is delivered, since notifications sent while disconnected are lost.
func (n *PostgresNotifier) Subscribe(ctx context.Context) (<-chan settings.Change, error) {
	if n.dsn == "" {
		return nil, errors.New("postgres dsn cannot be empty")
	}

	listener := pq.NewListener(n.dsn, n.minReconnect, n.maxReconnect, n.logEvent)
	if err := listener.Listen(n.channel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %q: %w", n.channel, err)
	}

	out := make(chan settings.Change, 16)
	go n.run(ctx, listener, out)

	n.logger.Info("listening for settings changes", "channel", n.channel)
	return out, nil
}

func (n *PostgresNotifier) run(ctx context.Context, listener *pq.Listener, out chan<- settings.Change) {
	defer close(out)
	defer listener.Close()

	ping := time.NewTicker(n.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case note, ok := <-listener.Notify:
			if !ok {
				return
			}
			select {
			case out <- changeFromNotification(note, time.Now()):
			case <-ctx.Done():
				return
			}
		case <-ping.C:
			go func() {
				if err := listener.Ping(); err != nil {
					n.logger.Debug("listener ping failed", "error", err)
				}
			}()
		}
	}
}

func (n *PostgresNotifier) logEvent(event pq.ListenerEventType, err error) {
	switch event {
	case pq.ListenerEventConnected:
		n.logger.Debug("settings listener connected")
	case pq.ListenerEventDisconnected:
		n.logger.Warn("settings listener disconnected", "error", err)
	case pq.ListenerEventReconnected:
		n.logger.Info("settings listener reconnected")
	case pq.ListenerEventConnectionAttemptFailed:
		n.logger.Warn("settings listener connection attempt failed", "error", err)
	}
}

// changeFromNotification maps a notification. lib/pq delivers nil after a
// reconnect.
func changeFromNotification(note *pq.Notification, at time.Time) settings.Change {
	if note == nil {
		return settings.Change{At: at}
	}
	return parsePayload(note.Extra, at)
}
