package settings

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu    sync.Mutex
	rows  map[string]Descriptor
	err   error
	reads atomic.Int32

	// gate, when set, blocks reads until closed; started is signalled once
	// per read.
	gate    chan struct{}
	started chan struct{}
}

func newFakeStore(rows ...Descriptor) *fakeStore {
	s := &fakeStore{rows: make(map[string]Descriptor)}
	for _, row := range rows {
		s.rows[row.Name] = row
	}
	return s
}

func (s *fakeStore) ReadProvider(ctx context.Context, name string) (Descriptor, error) {
	s.reads.Add(1)
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return Descriptor{}, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Descriptor{}, s.err
	}
	row, ok := s.rows[name]
	if !ok {
		return Descriptor{}, ErrNotFound
	}
	return row, nil
}

func (s *fakeStore) ListProviders(ctx context.Context) ([]Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	rows := make([]Descriptor, 0, len(s.rows))
	for _, row := range s.rows {
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) set(row Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[row.Name] = row
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestResolver(store Store) (*Resolver, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := NewResolver(store, Options{})
	r.now = clock.Now
	return r, clock
}

func row(name string, maxOutput int) Descriptor {
	return Descriptor{
		Name: name, Enabled: true, DefaultModel: name + "-model",
		MaxOutputCap: maxOutput, RequestsPerMinute: 10, TimeoutSeconds: 30, RetryCount: 1, Temperature: 0.2,
	}
}

func capScope(provider string) Scope {
	return Scope{Provider: provider, Field: FieldMaxOutputCap}
}

func TestResolve_StoreThenCache(t *testing.T) {
	store := newFakeStore(row("openai", 1000))
	r, _ := newTestResolver(store)
	ctx := context.Background()

	first := r.Resolve(ctx, capScope("openai"), nil)
	assert.Equal(t, SourceStore, first.Source)
	assert.Equal(t, 1000, first.Value)

	second := r.Resolve(ctx, capScope("openai"), nil)
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, 1000, second.Value)
	assert.EqualValues(t, 1, store.reads.Load())
}

func TestResolve_TTLExpiry(t *testing.T) {
	store := newFakeStore(row("openai", 1000))
	r, clock := newTestResolver(store)
	ctx := context.Background()

	r.Resolve(ctx, capScope("openai"), nil)
	store.set(row("openai", 2000))

	clock.Advance(4 * time.Minute)
	assert.Equal(t, 1000, r.Resolve(ctx, capScope("openai"), nil).Value)

	clock.Advance(2 * time.Minute)
	res := r.Resolve(ctx, capScope("openai"), nil)
	assert.Equal(t, SourceStore, res.Source)
	assert.Equal(t, 2000, res.Value)
	assert.ErrorIs(t, res.Trace[1].Err, ErrCacheExpired)
}

func TestResolve_FallbackWhenStoreUnreachable(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
	r, _ := newTestResolver(store)
	ctx := context.Background()

	defaults := DefaultTable()
	for _, name := range []string{"openai", "anthropic", "gemini", "ollama"} {
		for _, field := range Fields {
			res := r.Resolve(ctx, Scope{Provider: name, Field: field}, nil)
			assert.Equal(t, SourceDefault, res.Source, "%s.%s", name, field)
			assert.Equal(t, defaults[name].Get(field), res.Value, "%s.%s", name, field)
		}
	}
}

func TestResolve_TraceRecordsEveryLayer(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	r, _ := newTestResolver(store)

	res := r.Resolve(context.Background(), capScope("anthropic"), nil)

	require.Len(t, res.Trace, 4)
	assert.Equal(t, SourceOverride, res.Trace[0].Source)
	assert.ErrorIs(t, res.Trace[0].Err, ErrNotOverridable)
	assert.ErrorIs(t, res.Trace[1].Err, ErrCacheMiss)
	assert.Equal(t, SourceStore, res.Trace[2].Source)
	assert.ErrorContains(t, res.Trace[2].Err, "connection refused")
	assert.True(t, res.Trace[3].Hit())
	assert.Equal(t, 8192, res.Trace[3].Value)

	failures := res.Trace.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, SourceStore, failures[0].Source)
	assert.Contains(t, res.Trace.String(), "default: 8192")
}

func TestResolve_MissingAndMalformedRows(t *testing.T) {
	bad := row("gemini", 0)
	store := newFakeStore(bad)
	r, _ := newTestResolver(store)
	ctx := context.Background()

	malformed := r.Resolve(ctx, capScope("gemini"), nil)
	assert.Equal(t, SourceDefault, malformed.Source)
	assert.Equal(t, 8192, malformed.Value)
	var me *MalformedError
	assert.ErrorAs(t, malformed.Trace[2].Err, &me)

	missing := r.Resolve(ctx, capScope("openai"), nil)
	assert.Equal(t, SourceDefault, missing.Source)
	assert.ErrorIs(t, missing.Trace[2].Err, ErrNotFound)
}

func TestResolve_UnknownProvider(t *testing.T) {
	r, _ := newTestResolver(newFakeStore())

	res := r.Resolve(context.Background(), capScope("nobody"), nil)
	assert.Equal(t, SourceNone, res.Source)
	assert.Nil(t, res.Value)
	_, ok := res.Int()
	assert.False(t, ok)
}

func TestResolve_Overrides(t *testing.T) {
	r, _ := newTestResolver(newFakeStore(row("openai", 1000)))
	ctx := context.Background()
	temp := 1.5
	ov := &Overrides{Model: "gpt-4o", TimeoutSeconds: 5, Temperature: &temp}

	tests := []struct {
		field  Field
		want   any
		source Source
	}{
		{FieldDefaultModel, "gpt-4o", SourceOverride},
		{FieldTimeoutSeconds, 5, SourceOverride},
		{FieldTemperature, 1.5, SourceOverride},
		{FieldMaxOutputCap, 1000, SourceStore},
		{FieldRetryCount, 1, SourceCache},
	}
	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			res := r.Resolve(ctx, Scope{Provider: "openai", Field: tt.field}, ov)
			assert.Equal(t, tt.want, res.Value)
			assert.Equal(t, tt.source, res.Source)
		})
	}
}

func TestEffective_AppliesOverrides(t *testing.T) {
	r, _ := newTestResolver(newFakeStore(row("openai", 1000)))
	temp := 0.0
	eff := r.Effective(context.Background(), "openai", &Overrides{Temperature: &temp})

	assert.True(t, eff.Found())
	assert.Equal(t, SourceStore, eff.Source)
	assert.Equal(t, 0.0, eff.Descriptor.Temperature)
	assert.Equal(t, 1000, eff.Descriptor.MaxOutputCap)
	assert.Equal(t, []Field{FieldTemperature}, eff.Overridden)

	unknown := r.Effective(context.Background(), "nobody", nil)
	assert.False(t, unknown.Found())
	assert.Equal(t, "nobody", unknown.Descriptor.Name)
}

func TestResolve_SingleFlight(t *testing.T) {
	store := newFakeStore(row("openai", 1000))
	store.gate = make(chan struct{})
	store.started = make(chan struct{}, 100)
	r, _ := newTestResolver(store)

	const callers = 50
	var wg sync.WaitGroup
	results := make([]Resolution, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = r.Resolve(context.Background(), capScope("openai"), nil)
		}()
	}

	<-store.started
	time.Sleep(20 * time.Millisecond)
	close(store.gate)
	wg.Wait()

	assert.EqualValues(t, 1, store.reads.Load())
	for _, res := range results {
		assert.Equal(t, 1000, res.Value)
	}
}

func TestResolve_CallerCancelDoesNotFailSharedRead(t *testing.T) {
	store := newFakeStore(row("openai", 1000))
	store.gate = make(chan struct{})
	store.started = make(chan struct{}, 1)
	r, _ := newTestResolver(store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Resolution, 1)
	go func() { done <- r.Resolve(ctx, capScope("openai"), nil) }()

	<-store.started
	cancel()
	res := <-done
	assert.Equal(t, SourceDefault, res.Source)
	assert.ErrorIs(t, res.Trace[2].Err, context.Canceled)

	close(store.gate)
	require.Eventually(t, func() bool {
		return len(r.CachedProviders()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestResolve_FailureBackoff(t *testing.T) {
	store := newFakeStore(row("openai", 1000))
	store.err = errors.New("i/o timeout")
	r, clock := newTestResolver(store)
	ctx := context.Background()

	r.Resolve(ctx, capScope("openai"), nil)
	res := r.Resolve(ctx, capScope("openai"), nil)
	assert.EqualValues(t, 1, store.reads.Load())
	assert.ErrorIs(t, res.Trace[2].Err, ErrBackoff)
	assert.Equal(t, SourceDefault, res.Source)

	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()
	clock.Advance(6 * time.Second)

	res = r.Resolve(ctx, capScope("openai"), nil)
	assert.Equal(t, SourceStore, res.Source)
	assert.EqualValues(t, 2, store.reads.Load())
}

func TestInvalidate_OnlyAffectedProvider(t *testing.T) {
	store := newFakeStore(row("openai", 1000), row("anthropic", 2000))
	r, _ := newTestResolver(store)
	ctx := context.Background()

	r.Resolve(ctx, capScope("openai"), nil)
	r.Resolve(ctx, capScope("anthropic"), nil)
	store.set(row("openai", 1500))
	store.set(row("anthropic", 2500))

	r.Invalidate("openai")

	assert.Equal(t, 1500, r.Resolve(ctx, capScope("openai"), nil).Value)
	anthropic := r.Resolve(ctx, capScope("anthropic"), nil)
	assert.Equal(t, SourceCache, anthropic.Source)
	assert.Equal(t, 2000, anthropic.Value)
}

func TestInvalidate_DiscardsInFlightRead(t *testing.T) {
	store := newFakeStore(row("openai", 1000))
	store.gate = make(chan struct{})
	store.started = make(chan struct{}, 2)
	r, _ := newTestResolver(store)

	done := make(chan struct{})
	go func() {
		r.Resolve(context.Background(), capScope("openai"), nil)
		close(done)
	}()

	<-store.started
	r.Invalidate("openai")
	close(store.gate)
	<-done

	assert.Empty(t, r.CachedProviders())
}

func TestInvalidateAll(t *testing.T) {
	r, _ := newTestResolver(newFakeStore(row("openai", 1000), row("anthropic", 2000)))
	ctx := context.Background()
	r.Resolve(ctx, capScope("openai"), nil)
	r.Resolve(ctx, capScope("anthropic"), nil)
	require.Len(t, r.CachedProviders(), 2)

	r.InvalidateAll()
	assert.Empty(t, r.CachedProviders())
}

func TestEnabledProviders(t *testing.T) {
	ollama := row("ollama", 4096)
	openai := row("openai", 1000)
	openai.Enabled = false
	store := newFakeStore(ollama, openai, row("alpha", 512))
	r, _ := newTestResolver(store)

	got := r.EnabledProviders(context.Background())
	assert.Equal(t, []string{"alpha", "anthropic", "gemini", "ollama"}, got)
}

func TestEnabledProviders_StoreDown(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	r, _ := newTestResolver(store)

	got := r.EnabledProviders(context.Background())
	assert.Equal(t, []string{"anthropic", "gemini", "openai"}, got)
}

func TestResolver_NilStore(t *testing.T) {
	r := NewResolver(nil, Options{})
	res := r.Resolve(context.Background(), capScope("openai"), nil)
	assert.Equal(t, SourceDefault, res.Source)
	assert.Error(t, r.Ping(context.Background()))
}

func TestRefresh(t *testing.T) {
	store := newFakeStore(row("openai", 1000), row("alpha", 512))
	r, clock := newTestResolver(store)
	ctx := context.Background()

	n, err := r.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, SourceCache, r.Resolve(ctx, capScope("alpha"), nil).Source)
	assert.EqualValues(t, 0, store.reads.Load())

	store.mu.Lock()
	delete(store.rows, "alpha")
	store.mu.Unlock()
	clock.Advance(10 * time.Minute)

	_, err = r.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"openai"}, r.CachedProviders())
}

type chanNotifier struct {
	ch chan Change
}

func (n *chanNotifier) Subscribe(ctx context.Context) (<-chan Change, error) {
	return n.ch, nil
}

func TestWatch(t *testing.T) {
	store := newFakeStore(row("openai", 1000), row("anthropic", 2000))
	r, _ := newTestResolver(store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r.Resolve(ctx, capScope("openai"), nil)
	r.Resolve(ctx, capScope("anthropic"), nil)

	notifier := &chanNotifier{ch: make(chan Change)}
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx, notifier) }()

	notifier.ch <- Change{Provider: "openai"}
	require.Eventually(t, func() bool {
		cached := r.CachedProviders()
		return len(cached) == 1 && cached[0] == "anthropic"
	}, time.Second, 5*time.Millisecond)

	notifier.ch <- Change{}
	require.Eventually(t, func() bool {
		return len(r.CachedProviders()) == 0
	}, time.Second, 5*time.Millisecond)

	close(notifier.ch)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after the feed closed")
	}
}

func TestRefresher(t *testing.T) {
	r, _ := newTestResolver(newFakeStore(row("openai", 1000)))

	assert.Error(t, NewRefresher(r, "every tuesday", nil).Start(context.Background()))

	disabled := NewRefresher(r, "", nil)
	require.NoError(t, disabled.Start(context.Background()))
	assert.False(t, disabled.Running())

	ctx, cancel := context.WithCancel(context.Background())
	refresher := NewRefresher(r, "@every 1h", nil)
	require.NoError(t, refresher.Start(ctx))
	assert.True(t, refresher.Running())

	refresher.RunOnce(ctx)
	assert.Equal(t, []string{"openai"}, r.CachedProviders())

	cancel()
	require.Eventually(t, func() bool { return !refresher.Running() }, time.Second, 5*time.Millisecond)
}

func TestDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Descriptor)
		wantErr bool
	}{
		{"valid", func(*Descriptor) {}, false},
		{"zero cap", func(d *Descriptor) { d.MaxOutputCap = 0 }, true},
		{"zero timeout", func(d *Descriptor) { d.TimeoutSeconds = 0 }, true},
		{"negative retries", func(d *Descriptor) { d.RetryCount = -1 }, true},
		{"temperature too high", func(d *Descriptor) { d.Temperature = 2.5 }, true},
		{"no name", func(d *Descriptor) { d.Name = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := row("openai", 100)
			tt.mutate(&d)
			err := d.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultTable_Invariants(t *testing.T) {
	for name, d := range DefaultTable() {
		assert.Equal(t, name, d.Name)
		assert.NoError(t, d.Validate(), name)
	}
}
