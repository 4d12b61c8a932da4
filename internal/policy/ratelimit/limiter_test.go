package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/stockwatch/internal/stock"
)

type countingFetcher struct {
	calls int
}

func (f *countingFetcher) Fetch(_ context.Context, req stock.FetchRequest) (stock.FetchResponse, error) {
	f.calls++
	return stock.FetchResponse{URL: req.URL, StatusCode: 200}, nil
}

func TestLimiterWaitPacesSameHost(t *testing.T) {
	t.Parallel()
	l := New(Config{RPS: 10, Burst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://www.bestbuy.com/a"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://www.bestbuy.com/b"))
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestLimiterDifferentHosts(t *testing.T) {
	t.Parallel()
	l := New(Config{RPS: 1, Burst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://a.example/1"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://b.example/1"))
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestLimiterZeroRateNeverBlocks(t *testing.T) {
	t.Parallel()
	l := New(Config{})
	ctx := context.Background()
	start := time.Now()
	for range 20 {
		require.NoError(t, l.Wait(ctx, "https://a.example/1"))
	}
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestFetcherCanceledWaitIsTransportError(t *testing.T) {
	t.Parallel()
	inner := &countingFetcher{}
	f := Wrap(inner, New(Config{RPS: 0.01, Burst: 1}))

	_, err := f.Fetch(context.Background(), stock.FetchRequest{URL: "https://a.example/1"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, stock.FetchRequest{URL: "https://a.example/2"})
	var transportErr *stock.TransportError
	require.True(t, errors.As(err, &transportErr))
	require.Equal(t, 1, inner.calls)
}

func TestHostOf(t *testing.T) {
	t.Parallel()
	require.Equal(t, "www.bestbuy.com", hostOf("https://www.bestbuy.com/site/x.p?skuId=1"))
	require.Equal(t, "unknown", hostOf("::not a url"))
}
