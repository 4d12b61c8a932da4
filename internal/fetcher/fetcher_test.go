package fetcher

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/stockwatch/internal/stock"
)

type stubFetcher struct {
	resp  stock.FetchResponse
	err   error
	calls int
}

func (s *stubFetcher) Fetch(context.Context, stock.FetchRequest) (stock.FetchResponse, error) {
	s.calls++
	return s.resp, s.err
}

type stubDetector bool

func (d stubDetector) ShouldPromote(stock.FetchResponse) bool { return bool(d) }

func TestPromotingPassThroughWithoutHeadless(t *testing.T) {
	t.Parallel()

	probe := &stubFetcher{resp: stock.FetchResponse{StatusCode: http.StatusOK, Body: []byte("plain")}}
	p := NewPromoting(probe, nil, stubDetector(true), nil)

	resp, err := p.Fetch(context.Background(), stock.FetchRequest{URL: "https://shop"})
	require.NoError(t, err)
	require.Equal(t, "plain", string(resp.Body))
	require.Equal(t, 1, probe.calls)
}

func TestPromotingSkipsHeadlessWhenNotNeeded(t *testing.T) {
	t.Parallel()

	probe := &stubFetcher{resp: stock.FetchResponse{StatusCode: http.StatusOK, Body: []byte("plain")}}
	headless := &stubFetcher{}
	p := NewPromoting(probe, headless, stubDetector(false), nil)

	resp, err := p.Fetch(context.Background(), stock.FetchRequest{URL: "https://shop"})
	require.NoError(t, err)
	require.Equal(t, "plain", string(resp.Body))
	require.Zero(t, headless.calls)
}

func TestPromotingUsesRenderedResponse(t *testing.T) {
	t.Parallel()

	probe := &stubFetcher{resp: stock.FetchResponse{StatusCode: http.StatusOK, Duration: time.Second}}
	headless := &stubFetcher{resp: stock.FetchResponse{
		StatusCode:   http.StatusOK,
		Body:         []byte("rendered"),
		Duration:     2 * time.Second,
		UsedHeadless: true,
	}}
	p := NewPromoting(probe, headless, stubDetector(true), nil)

	resp, err := p.Fetch(context.Background(), stock.FetchRequest{URL: "https://shop"})
	require.NoError(t, err)
	require.True(t, resp.UsedHeadless)
	require.Equal(t, "rendered", string(resp.Body))
	require.Equal(t, 3*time.Second, resp.Duration)
}

func TestPromotingFallsBackToProbe(t *testing.T) {
	t.Parallel()

	probe := &stubFetcher{resp: stock.FetchResponse{StatusCode: http.StatusOK, Body: []byte("plain")}}
	headless := &stubFetcher{err: errors.New("chrome missing")}
	p := NewPromoting(probe, headless, stubDetector(true), nil)

	resp, err := p.Fetch(context.Background(), stock.FetchRequest{URL: "https://shop"})
	require.NoError(t, err)
	require.False(t, resp.UsedHeadless)
	require.Equal(t, "plain", string(resp.Body))
}

func TestPromotingProbeErrorIsReturned(t *testing.T) {
	t.Parallel()

	probeErr := &stock.StatusError{URL: "https://shop", StatusCode: http.StatusForbidden}
	probe := &stubFetcher{err: probeErr}
	headless := &stubFetcher{}
	p := NewPromoting(probe, headless, stubDetector(true), nil)

	_, err := p.Fetch(context.Background(), stock.FetchRequest{URL: "https://shop"})
	require.ErrorIs(t, err, probeErr)
	require.Zero(t, headless.calls)
}

func TestPromotingCanceledDuringRender(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	probe := &stubFetcher{resp: stock.FetchResponse{StatusCode: http.StatusOK}}
	headless := &stubFetcher{err: errors.New("tab closed")}
	p := NewPromoting(probe, headless, stubDetector(true), nil)

	_, err := p.Fetch(ctx, stock.FetchRequest{URL: "https://shop"})
	require.ErrorIs(t, err, context.Canceled)
}
