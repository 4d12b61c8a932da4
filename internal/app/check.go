package app

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/config"
	"github.com/JakeFAU/stockwatch/internal/monitor"
	"github.com/JakeFAU/stockwatch/internal/notify"
	"github.com/JakeFAU/stockwatch/internal/stock"
)

// Check runs a single pass over products without connecting to Discord.
// Announcements are written to w. When products is empty the configured
// selection is used.
func Check(ctx context.Context, cfg config.Config, logger *zap.Logger, products []stock.Product, w io.Writer) (monitor.Report, error) {
	if len(products) == 0 {
		tracked, err := cfg.TrackedProducts()
		if err != nil {
			return monitor.Report{}, err
		}
		products = tracked
	}
	f, closeFn, err := BuildFetcher(cfg, logger)
	if err != nil {
		return monitor.Report{}, err
	}
	defer closeFn()

	notifier := notify.New(&notify.WriterSender{W: w}, logger.Named("notify"))
	mon := monitor.New(f, notifier, cfg.Fetch.UserAgent, logger.Named("monitor"))
	return mon.Check(ctx, products), nil
}
