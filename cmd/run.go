package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/app"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connects to Discord and starts polling",
		Long: `Connects the bot to Discord, starts the stock poller once the
gateway is ready and serves the ops endpoints until interrupted.`,
		Args: cobra.NoArgs,
		RunE: runRunCommand,
	}
}

func runRunCommand(cmd *cobra.Command, _ []string) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(e.cfg, e.logger)
	if err != nil {
		return fmt.Errorf("initialize application services: %w", err)
	}
	defer a.Close()

	e.logger.Info("stockwatch starting",
		zap.Duration("interval", e.cfg.Interval()),
		zap.Strings("products", e.cfg.Scheduler.Products),
		zap.Bool("skip_weekends", e.cfg.Scheduler.SkipWeekends),
	)
	if err := a.Run(ctx); err != nil {
		return err
	}
	e.logger.Info("stockwatch stopped")
	return nil
}
