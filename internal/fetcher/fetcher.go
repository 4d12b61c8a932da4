// Package fetcher composes the plain and headless page fetchers.
package fetcher

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/stock"
)

// Detector decides whether a plain response needs a headless render.
type Detector interface {
	ShouldPromote(resp stock.FetchResponse) bool
}

// Promoting fetches with a cheap HTTP probe first and re-renders in a
// headless browser when the detector asks for it. A failed render falls
// back to the probe response.
type Promoting struct {
	probe    stock.Fetcher
	headless stock.Fetcher
	detector Detector
	logger   *zap.Logger
}

// NewPromoting wires a probe fetcher with an optional headless fetcher.
// With a nil headless fetcher or detector it behaves exactly like probe.
func NewPromoting(probe, headless stock.Fetcher, detector Detector, logger *zap.Logger) *Promoting {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Promoting{
		probe:    probe,
		headless: headless,
		detector: detector,
		logger:   logger,
	}
}

// Fetch implements stock.Fetcher.
func (p *Promoting) Fetch(ctx context.Context, request stock.FetchRequest) (stock.FetchResponse, error) {
	resp, err := p.probe.Fetch(ctx, request)
	if err != nil || p.headless == nil || p.detector == nil {
		return resp, err
	}
	if !p.detector.ShouldPromote(resp) {
		return resp, nil
	}

	p.logger.Debug("promoting fetch to headless",
		zap.String("product", request.ProductID),
		zap.String("url", request.URL),
		zap.Int("probe_bytes", len(resp.Body)),
	)
	rendered, herr := p.headless.Fetch(ctx, request)
	if herr != nil {
		if ctx.Err() != nil {
			return stock.FetchResponse{}, &stock.TransportError{URL: request.URL, Err: ctx.Err()}
		}
		p.logger.Warn("headless fetch failed; using probe response",
			zap.String("product", request.ProductID),
			zap.String("url", request.URL),
			zap.Error(herr),
		)
		return resp, nil
	}
	rendered.Duration += resp.Duration
	return rendered, nil
}
