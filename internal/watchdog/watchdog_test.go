package watchdog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeStarter struct {
	mu      sync.Mutex
	running bool
	calls   int
	err     error
}

func (f *fakeStarter) EnsureRunning(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	if f.running {
		return false, nil
	}
	f.running = true
	return true, nil
}

func TestCheckRestartsStoppedPoller(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	starter := &fakeStarter{}
	w, err := New(starter, time.UTC, zap.New(core))
	require.NoError(t, err)

	w.Check(context.Background())
	require.True(t, starter.running)
	require.Equal(t, 1, logs.FilterMessage("poller was stopped; restarted by watchdog").Len())

	w.Check(context.Background())
	require.Equal(t, 2, starter.calls)
	require.Equal(t, 1, logs.FilterMessage("watchdog check: poller running").Len())
}

func TestCheckLogsErrors(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	w, err := New(&fakeStarter{err: errors.New("closed")}, time.UTC, zap.New(core))
	require.NoError(t, err)

	w.Check(context.Background())
	require.Equal(t, 1, logs.FilterMessage("watchdog could not check poller").Len())
}

func TestNextIsMondayMidnight(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("EST", -5*3600)
	w, err := New(&fakeStarter{}, loc, nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "saturday",
			now:  time.Date(2025, time.March, 8, 14, 30, 0, 0, loc),
			want: time.Date(2025, time.March, 10, 0, 0, 0, 0, loc),
		},
		{
			name: "sunday late",
			now:  time.Date(2025, time.March, 9, 23, 59, 0, 0, loc),
			want: time.Date(2025, time.March, 10, 0, 0, 0, 0, loc),
		},
		{
			name: "monday midnight rolls to next week",
			now:  time.Date(2025, time.March, 10, 0, 0, 0, 0, loc),
			want: time.Date(2025, time.March, 17, 0, 0, 0, 0, loc),
		},
		{
			name: "utc input converted",
			now:  time.Date(2025, time.March, 10, 3, 0, 0, 0, time.UTC),
			want: time.Date(2025, time.March, 10, 0, 0, 0, 0, loc),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := w.Next(tt.now)
			require.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	w, err := New(&fakeStarter{}, time.UTC, nil)
	require.NoError(t, err)

	w.Start(context.Background())
	entries := w.cron.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, time.Monday, entries[0].Next.Weekday())
	w.Stop()
}
