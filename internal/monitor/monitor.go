// Package monitor runs one polling pass over the tracked products.
package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/metrics"
	"github.com/JakeFAU/stockwatch/internal/stock"
)

// Announcer is the subset of notify.Notifier used by the monitor.
type Announcer interface {
	Notify(ctx context.Context, p stock.Product, s stock.Status) (bool, error)
	FetchFailed(ctx context.Context, p stock.Product, err error) error
}

// Result is the outcome of checking a single product.
type Result struct {
	Product  stock.Product
	Status   stock.Status
	Err      error
	Duration time.Duration
	Headless bool
	Notified bool
}

// Report summarizes one pass.
type Report struct {
	Results []Result
	// Halted is set when a NotFound status ended the pass early.
	Halted bool
}

// Monitor fetches, extracts and announces stock statuses.
type Monitor struct {
	fetcher   stock.Fetcher
	announcer Announcer
	userAgent string
	logger    *zap.Logger
}

// New constructs a Monitor. userAgent is sent with every request along
// with Cache-Control: max-age=0.
func New(fetcher stock.Fetcher, announcer Announcer, userAgent string, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		fetcher:   fetcher,
		announcer: announcer,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Check polls products in order. A failed fetch is logged and announced and
// the pass moves on to the next product. A NotFound status is announced and
// ends the pass.
func (m *Monitor) Check(ctx context.Context, products []stock.Product) Report {
	var report Report
	for _, p := range products {
		if ctx.Err() != nil {
			return report
		}
		res := m.checkOne(ctx, p)
		if res.Err != nil && ctx.Err() != nil {
			// Canceled mid-fetch; a restart is in progress.
			return report
		}
		report.Results = append(report.Results, res)
		if res.Err == nil && res.Status == stock.NotFound {
			report.Halted = true
			m.logger.Warn("stock status not found; skipping remaining products",
				zap.String("product", p.ID),
			)
			return report
		}
	}
	return report
}

func (m *Monitor) checkOne(ctx context.Context, p stock.Product) Result {
	logger := m.logger.With(zap.String("product", p.ID))
	res := Result{Product: p}

	resp, err := m.fetcher.Fetch(ctx, stock.FetchRequest{
		ProductID: p.ID,
		URL:       p.URL,
		Headers:   stock.DefaultHeaders(m.userAgent),
	})
	res.Duration = resp.Duration
	res.Headless = resp.UsedHeadless
	metrics.ObserveFetch(p.ID, resp.Duration)
	if err != nil {
		res.Err = err
		if ctx.Err() != nil {
			return res
		}
		kind := stock.ErrorKind(err)
		metrics.ObserveFetchError(p.ID, kind)
		logger.Error("error fetching stock status",
			zap.String("url", p.URL),
			zap.String("kind", kind),
			zap.Error(err),
		)
		if aerr := m.announcer.FetchFailed(ctx, p, err); aerr == nil {
			res.Notified = true
		}
		return res
	}

	res.Status = stock.ExtractStatus(resp.Body)
	metrics.ObserveCheck(p.ID, res.Status.Key())
	logger.Info("stock status checked",
		zap.Stringer("status", res.Status),
		zap.Int("http_status", resp.StatusCode),
		zap.Bool("headless", resp.UsedHeadless),
		zap.Duration("took", resp.Duration),
	)

	sent, nerr := m.announcer.Notify(ctx, p, res.Status)
	res.Notified = sent && nerr == nil
	return res
}
