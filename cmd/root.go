// Package cmd defines and implements the CLI commands for the stockwatch executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/config"
	"github.com/JakeFAU/stockwatch/internal/logging"
)

var cfgFile string

// envKeyType is the key for storing the loaded environment in the context.
type envKeyType string

const envKey envKeyType = "env"

// env carries what every subcommand needs: validated config and a logger.
type env struct {
	cfg      config.Config
	logger   *zap.Logger
	closeLog func()
}

// loadEnv is a variable so tests can swap in a fixed config.
var loadEnv = func(path string) (*env, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, closeLog, err := logging.New(cfg.Logging.Development, cfg.Logging.File)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return &env{cfg: cfg, logger: logger, closeLog: closeLog}, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stockwatch",
		Short: "Watches retail product pages and announces stock changes on Discord.",
		Long: `stockwatch polls product pages on a fixed interval, reads the
purchase button state and posts to a Discord channel when a product is
coming soon or can be added to the cart. The poll is controlled from the
channel with prefix commands.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cfgFile)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), envKey, e))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if e, ok := cmd.Context().Value(envKey).(*env); ok && e != nil && e.closeLog != nil {
				e.closeLog()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults and STOCKWATCH_* environment variables apply without one)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newCheckCmd())
	return cmd
}

func resolveEnv(ctx context.Context) (*env, error) {
	e, ok := ctx.Value(envKey).(*env)
	if !ok || e == nil {
		return nil, errors.New("configuration not loaded")
	}
	return e, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "stockwatch: %v\n", err)
		os.Exit(1)
	}
}
