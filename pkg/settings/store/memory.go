package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercator-hq/switchboard/pkg/settings"
)

// MemoryStore keeps rows in process. It is also a Notifier: every write is
// announced to subscribers.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]settings.Descriptor
	subs map[chan settings.Change]struct{}
	now  func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[string]settings.Descriptor),
		subs: make(map[chan settings.Change]struct{}),
		now:  time.Now,
	}
}

func (m *MemoryStore) ReadProvider(ctx context.Context, name string) (settings.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return settings.Descriptor{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.rows[name]
	if !ok {
		return settings.Descriptor{}, settings.ErrNotFound
	}
	return row, nil
}

func (m *MemoryStore) ListProviders(ctx context.Context) ([]settings.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]settings.Descriptor, 0, len(m.rows))
	for _, row := range m.rows {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows, nil
}

// Upsert writes a row and notifies subscribers.
func (m *MemoryStore) Upsert(ctx context.Context, row settings.Descriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	row.UpdatedAt = m.now()
	m.rows[row.Name] = row
	m.notifyLocked(settings.Change{Provider: row.Name, At: row.UpdatedAt})
	return nil
}

// Delete removes a row and notifies subscribers. Deleting a missing row is
// a no-op.
func (m *MemoryStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rows[name]; !ok {
		return nil
	}
	delete(m.rows, name)
	m.notifyLocked(settings.Change{Provider: name, At: m.now()})
	return nil
}

// Subscribe implements settings.Notifier. Slow subscribers miss changes
// rather than block writers.
func (m *MemoryStore) Subscribe(ctx context.Context) (<-chan settings.Change, error) {
	ch := make(chan settings.Change, 16)

	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, ch)
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}

func (m *MemoryStore) notifyLocked(change settings.Change) {
	for ch := range m.subs {
		select {
		case ch <- change:
		default:
		}
	}
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) Close() error {
	return nil
}
