package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/metrics"
	"github.com/JakeFAU/stockwatch/internal/stock"
)

// poller is one running tick loop. Its products are a private copy, so a
// reconfiguration always means a new poller.
type poller struct {
	s         *Scheduler
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time
	interval  time.Duration
	products  []stock.Product
	ticker    Ticker
	lastTick  atomic.Int64
}

func (p *poller) run(ctx context.Context, immediate bool) {
	defer close(p.done)
	defer p.ticker.Stop()

	if immediate {
		p.tick(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.ticker.C():
			if ctx.Err() != nil {
				return
			}
			p.tick(ctx)
		}
	}
}

func (p *poller) tick(ctx context.Context) {
	now := p.s.clock.Now()
	p.lastTick.Store(now.UnixNano())

	logger := p.s.logger
	if id, err := p.s.ids.NewID(); err == nil {
		logger = logger.With(zap.String("tick_id", id))
	}

	if p.s.skipWeekends && IsWeekend(now) {
		metrics.ObserveTick("weekend_skip")
		logger.Info("weekend; skipping stock check", zap.Stringer("weekday", now.Weekday()))
		return
	}

	metrics.ObserveTick("run")
	start := time.Now()
	report := p.s.checker.Check(ctx, p.products)
	failed := 0
	for _, r := range report.Results {
		if r.Err != nil {
			failed++
		}
	}
	logger.Info("stock check finished",
		zap.Int("checked", len(report.Results)),
		zap.Int("failed", failed),
		zap.Bool("halted", report.Halted),
		zap.Duration("took", time.Since(start)),
	)
}

// nextTick is the first tick boundary after now.
func (p *poller) nextTick(now time.Time) time.Time {
	if p.interval <= 0 {
		return time.Time{}
	}
	elapsed := now.Sub(p.startedAt)
	if elapsed < 0 {
		return p.startedAt.Add(p.interval)
	}
	n := elapsed/p.interval + 1
	return p.startedAt.Add(n * p.interval)
}

type timeTicker struct {
	t *time.Ticker
}

func newTimeTicker(d time.Duration) Ticker {
	return &timeTicker{t: time.NewTicker(d)}
}

func (t *timeTicker) C() <-chan time.Time { return t.t.C }

func (t *timeTicker) Stop() { t.t.Stop() }
