package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/monitor"
	"github.com/JakeFAU/stockwatch/internal/stock"
)

var (
	gpuA = stock.Product{ID: "5080", Name: "RTX 5080", URL: "https://shop/5080"}
	gpuB = stock.Product{ID: "5090", Name: "RTX 5090", URL: "https://shop/5090"}
)

// A Wednesday.
var weekday = time.Date(2025, time.March, 5, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fakeTicker struct {
	interval time.Duration
	ch       chan time.Time
	mu       sync.Mutex
	stopped  bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type tickerFactory struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (f *tickerFactory) New(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{interval: d, ch: make(chan time.Time)}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *tickerFactory) all() []*fakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeTicker(nil), f.tickers...)
}

func (f *tickerFactory) last() *fakeTicker {
	all := f.all()
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

type fakeChecker struct {
	calls chan []stock.Product
}

func newFakeChecker() *fakeChecker {
	return &fakeChecker{calls: make(chan []stock.Product, 16)}
}

func (c *fakeChecker) Check(_ context.Context, products []stock.Product) monitor.Report {
	c.calls <- products
	return monitor.Report{}
}

func (c *fakeChecker) waitCall(t *testing.T) []stock.Product {
	t.Helper()
	select {
	case p := <-c.calls:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for check")
		return nil
	}
}

func (c *fakeChecker) requireNoCall(t *testing.T) {
	t.Helper()
	select {
	case p := <-c.calls:
		t.Fatalf("unexpected check for %v", stock.IDs(p))
	case <-time.After(50 * time.Millisecond):
	}
}

type staticIDs struct{}

func (staticIDs) NewID() (string, error) { return "tick-1", nil }

type harness struct {
	s       *Scheduler
	checker *fakeChecker
	tickers *tickerFactory
	clock   *fakeClock
	cancel  context.CancelFunc
	exited  chan struct{}
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	h := &harness{
		checker: newFakeChecker(),
		tickers: &tickerFactory{},
		clock:   &fakeClock{now: weekday},
		exited:  make(chan struct{}),
	}
	s, err := New(cfg, h.checker, zap.NewNop(),
		WithTicker(h.tickers.New),
		WithClock(h.clock),
		WithIDGenerator(staticIDs{}),
	)
	require.NoError(t, err)
	h.s = s

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		defer close(h.exited)
		s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-h.exited
	})
	return h
}

func defaultConfig() Config {
	return Config{IntervalMinutes: 30, Products: []stock.Product{gpuA}, SkipWeekends: true}
}

func (h *harness) tick(t *testing.T) {
	t.Helper()
	tk := h.tickers.last()
	require.NotNil(t, tk)
	select {
	case tk.ch <- h.clock.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not receive tick")
	}
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(Config{IntervalMinutes: 0, Products: []stock.Product{gpuA}}, newFakeChecker(), nil)
	require.ErrorIs(t, err, ErrInvalidInterval)
	_, err = New(Config{IntervalMinutes: MaxIntervalMinutes + 1, Products: []stock.Product{gpuA}}, newFakeChecker(), nil)
	require.ErrorIs(t, err, ErrInvalidInterval)
	_, err = New(Config{IntervalMinutes: 1}, newFakeChecker(), nil)
	require.ErrorIs(t, err, ErrNoProducts)
}

func TestSetIntervalAtUpperBoundWhileRunning(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig())
	ctx := context.Background()
	require.NoError(t, h.s.Start(ctx))

	require.NotPanics(t, func() {
		require.NoError(t, h.s.SetInterval(ctx, MaxIntervalMinutes))
	})
	snap, err := h.s.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, Running, snap.State)
	require.Equal(t, MaxIntervalMinutes, snap.IntervalMinutes)
}

func TestValidInterval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		minutes int
		want    bool
	}{
		{0, false},
		{1, true},
		{30, true},
		{MaxIntervalMinutes, true},
		{MaxIntervalMinutes + 1, false},
		{200_000_000, false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ValidInterval(tt.minutes), "minutes=%d", tt.minutes)
	}
}

func TestStartRunsImmediatelyThenOnTicks(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig())
	ctx := context.Background()

	snap, err := h.s.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, Stopped, snap.State)

	require.NoError(t, h.s.Start(ctx))
	require.Equal(t, []stock.Product{gpuA}, h.checker.waitCall(t))
	require.Equal(t, 30*time.Minute, h.tickers.last().interval)

	h.tick(t)
	require.Equal(t, []stock.Product{gpuA}, h.checker.waitCall(t))

	snap, err = h.s.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, Running, snap.State)
	require.Equal(t, 30, snap.IntervalMinutes)
	require.Equal(t, weekday, snap.StartedAt)
	require.True(t, weekday.Equal(snap.LastTickAt), "last tick %v", snap.LastTickAt)
	require.False(t, snap.WeekendPaused)
}

func TestStartIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig())
	ctx := context.Background()

	require.NoError(t, h.s.Start(ctx))
	h.checker.waitCall(t)
	require.NoError(t, h.s.Start(ctx))
	h.checker.requireNoCall(t)
	require.Len(t, h.tickers.all(), 1)
}

func TestSetIntervalRestartsWithoutImmediateTick(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig())
	ctx := context.Background()

	require.NoError(t, h.s.Start(ctx))
	h.checker.waitCall(t)
	first := h.tickers.last()

	require.NoError(t, h.s.SetInterval(ctx, 5))
	h.checker.requireNoCall(t)

	all := h.tickers.all()
	require.Len(t, all, 2)
	require.True(t, first.isStopped())
	require.Equal(t, 5*time.Minute, all[1].interval)

	h.tick(t)
	h.checker.waitCall(t)

	snap, err := h.s.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, Running, snap.State)
	require.Equal(t, 5, snap.IntervalMinutes)
}

func TestSetIntervalRejectsInvalid(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig())
	ctx := context.Background()

	require.ErrorIs(t, h.s.SetInterval(ctx, 0), ErrInvalidInterval)
	require.ErrorIs(t, h.s.SetInterval(ctx, -3), ErrInvalidInterval)
	require.ErrorIs(t, h.s.SetInterval(ctx, MaxIntervalMinutes+1), ErrInvalidInterval)
	require.ErrorIs(t, h.s.SetInterval(ctx, 200_000_000), ErrInvalidInterval)

	snap, err := h.s.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, 30, snap.IntervalMinutes)
}

func TestSetProductsWhileRunning(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig())
	ctx := context.Background()

	require.NoError(t, h.s.Start(ctx))
	h.checker.waitCall(t)

	require.NoError(t, h.s.SetProducts(ctx, []stock.Product{gpuA, gpuB}))
	h.checker.requireNoCall(t)
	require.Len(t, h.tickers.all(), 2)

	h.tick(t)
	require.Equal(t, []stock.Product{gpuA, gpuB}, h.checker.waitCall(t))
	require.ErrorIs(t, h.s.SetProducts(ctx, nil), ErrNoProducts)
}

func TestChangesWhileStoppedOnlyUpdateConfig(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig())
	ctx := context.Background()

	require.NoError(t, h.s.SetInterval(ctx, 10))
	require.NoError(t, h.s.SetProducts(ctx, []stock.Product{gpuB}))
	h.checker.requireNoCall(t)
	require.Empty(t, h.tickers.all())

	snap, err := h.s.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, Stopped, snap.State)
	require.Equal(t, 10, snap.IntervalMinutes)
	require.Equal(t, []stock.Product{gpuB}, snap.Products)

	require.NoError(t, h.s.Start(ctx))
	require.Equal(t, []stock.Product{gpuB}, h.checker.waitCall(t))
	require.Equal(t, 10*time.Minute, h.tickers.last().interval)
}

func TestWeekendTickSkipsCheck(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig())
	saturday := time.Date(2025, time.March, 8, 9, 0, 0, 0, time.UTC)
	h.clock.Set(saturday)
	ctx := context.Background()

	require.NoError(t, h.s.Start(ctx))
	h.checker.requireNoCall(t)
	h.tick(t)
	h.checker.requireNoCall(t)

	snap, err := h.s.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, Running, snap.State)
	require.True(t, snap.WeekendPaused)
	require.True(t, saturday.Equal(snap.LastTickAt), "last tick %v", snap.LastTickAt)

	h.clock.Set(saturday.Add(48 * time.Hour))
	h.tick(t)
	h.checker.waitCall(t)
}

func TestWeekendSkipDisabled(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.SkipWeekends = false
	h := newHarness(t, cfg)
	h.clock.Set(time.Date(2025, time.March, 9, 9, 0, 0, 0, time.UTC))

	require.NoError(t, h.s.Start(context.Background()))
	h.checker.waitCall(t)
}

func TestStopAndEnsureRunning(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig())
	ctx := context.Background()

	started, err := h.s.EnsureRunning(ctx)
	require.NoError(t, err)
	require.True(t, started)
	h.checker.waitCall(t)

	started, err = h.s.EnsureRunning(ctx)
	require.NoError(t, err)
	require.False(t, started)

	require.NoError(t, h.s.Stop(ctx))
	require.True(t, h.tickers.last().isStopped())

	snap, err := h.s.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, Stopped, snap.State)
	require.True(t, snap.NextTickAt.IsZero())

	started, err = h.s.EnsureRunning(ctx)
	require.NoError(t, err)
	require.True(t, started)
	h.checker.waitCall(t)
}

func TestNextTickAt(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig())
	ctx := context.Background()

	require.NoError(t, h.s.Start(ctx))
	h.checker.waitCall(t)

	h.clock.Set(weekday.Add(10 * time.Minute))
	snap, err := h.s.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, weekday.Add(30*time.Minute), snap.NextTickAt)

	h.clock.Set(weekday.Add(65 * time.Minute))
	snap, err = h.s.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, weekday.Add(90*time.Minute), snap.NextTickAt)
}

func TestCallsAfterShutdown(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig())
	ctx := context.Background()
	require.NoError(t, h.s.Start(ctx))
	h.checker.waitCall(t)

	h.cancel()
	<-h.exited
	require.True(t, h.tickers.last().isStopped())

	_, err := h.s.Snapshot(ctx)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, h.s.Start(ctx), ErrClosed)
}

func TestIsWeekend(t *testing.T) {
	t.Parallel()

	require.False(t, IsWeekend(weekday))
	require.True(t, IsWeekend(time.Date(2025, time.March, 8, 0, 0, 0, 0, time.UTC)))
	require.True(t, IsWeekend(time.Date(2025, time.March, 9, 23, 59, 0, 0, time.UTC)))
	require.False(t, IsWeekend(time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)))
}
