// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/api"
	"github.com/JakeFAU/stockwatch/internal/clock/system"
	"github.com/JakeFAU/stockwatch/internal/config"
	"github.com/JakeFAU/stockwatch/internal/discord"
	"github.com/JakeFAU/stockwatch/internal/fetcher"
	collyfetcher "github.com/JakeFAU/stockwatch/internal/fetcher/colly"
	"github.com/JakeFAU/stockwatch/internal/fetcher/headless"
	"github.com/JakeFAU/stockwatch/internal/headless/detector"
	"github.com/JakeFAU/stockwatch/internal/id/uuid"
	"github.com/JakeFAU/stockwatch/internal/metrics"
	"github.com/JakeFAU/stockwatch/internal/monitor"
	"github.com/JakeFAU/stockwatch/internal/notify"
	"github.com/JakeFAU/stockwatch/internal/policy/ratelimit"
	"github.com/JakeFAU/stockwatch/internal/scheduler"
	"github.com/JakeFAU/stockwatch/internal/stock"
	"github.com/JakeFAU/stockwatch/internal/watchdog"
)

const shutdownTimeout = 10 * time.Second

// App holds the services that make up the running bot.
type App struct {
	logger    *zap.Logger
	closeFn   func()
	bot       *discord.Bot
	scheduler *scheduler.Scheduler
	watchdog  *watchdog.Watchdog
	server    *http.Server
}

// BuildFetcher returns the page fetcher described by cfg and a func that
// releases browser resources.
func BuildFetcher(cfg config.Config, logger *zap.Logger) (stock.Fetcher, func(), error) {
	probe := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.Fetch.Timeout,
	})
	limiter := ratelimit.New(ratelimit.Config{
		RPS:   cfg.Fetch.RateLimit.RPS,
		Burst: cfg.Fetch.RateLimit.Burst,
	})
	if !cfg.Fetch.Headless.Enabled {
		return ratelimit.Wrap(probe, limiter), func() {}, nil
	}
	browser, err := headless.NewChromedp(headless.Config{
		MaxParallel:       cfg.Fetch.Headless.MaxParallel,
		UserAgent:         cfg.Fetch.UserAgent,
		NavigationTimeout: cfg.Fetch.Headless.NavTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init headless fetcher: %w", err)
	}
	promoting := fetcher.NewPromoting(
		probe,
		browser,
		detector.NewHeuristic(cfg.Fetch.Headless.PromotionThreshold),
		logger.Named("fetcher"),
	)
	return ratelimit.Wrap(promoting, limiter), browser.Close, nil
}

// New wires the bot, scheduler, watchdog and ops server from cfg.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.RequireDiscord(); err != nil {
		return nil, err
	}
	metrics.Init()

	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	tracked, err := cfg.TrackedProducts()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	f, closeFn, err := BuildFetcher(cfg, logger)
	if err != nil {
		return nil, err
	}

	bot, err := discord.New(cfg.Discord.Token, cfg.Discord.ChannelID, logger.Named("discord"))
	if err != nil {
		closeFn()
		return nil, err
	}

	notifier := notify.New(bot, logger.Named("notify"))
	mon := monitor.New(f, notifier, cfg.Fetch.UserAgent, logger.Named("monitor"))
	clk := system.New(loc)

	sched, err := scheduler.New(scheduler.Config{
		IntervalMinutes: cfg.Scheduler.IntervalMinutes,
		Products:        tracked,
		SkipWeekends:    cfg.Scheduler.SkipWeekends,
	}, mon, logger.Named("scheduler"),
		scheduler.WithClock(clk),
		scheduler.WithIDGenerator(uuid.New()),
	)
	if err != nil {
		closeFn()
		return nil, err
	}

	wd, err := watchdog.New(sched, loc, logger.Named("watchdog"))
	if err != nil {
		closeFn()
		return nil, err
	}

	var resumeAt func(time.Time) time.Time
	if cfg.Scheduler.SkipWeekends {
		resumeAt = wd.Next
	}
	bot.HandleCommands(discord.NewRouter(bot.Session(), sched, catalog, discord.RouterConfig{
		Prefix:   cfg.Discord.Prefix,
		LogPath:  cfg.Logging.File,
		ResumeAt: resumeAt,
		Clock:    clk,
	}, logger.Named("commands")))

	a := &App{
		logger:    logger,
		closeFn:   closeFn,
		bot:       bot,
		scheduler: sched,
		watchdog:  wd,
	}
	if cfg.Server.Port > 0 {
		srv := api.NewServer(sched, catalog, resumeAt, logger.Named("http"))
		a.server = &http.Server{
			Addr:              ":" + strconv.Itoa(cfg.Server.Port),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return a, nil
}

// Run connects to Discord and polls until ctx is canceled. Failing to
// resolve the announcement channel is fatal.
func (a *App) Run(ctx context.Context) error {
	schedCtx, stopScheduler := context.WithCancel(ctx)
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		a.scheduler.Run(schedCtx)
	}()
	defer func() {
		stopScheduler()
		<-schedDone
	}()

	a.bot.OnReady(func(ctx context.Context) {
		if err := a.scheduler.Start(ctx); err != nil {
			a.logger.Error("start poller failed", zap.Error(err))
		}
	})
	if err := a.bot.Open(ctx); err != nil {
		return fmt.Errorf("connect to discord: %w", err)
	}
	a.watchdog.Start(ctx)

	serverErr := make(chan error, 1)
	if a.server != nil {
		go func() {
			a.logger.Info("ops server listening", zap.String("addr", a.server.Addr))
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-serverErr:
		runErr = fmt.Errorf("ops server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("ops server shutdown", zap.Error(err))
		}
	}
	a.watchdog.Stop()
	if err := a.bot.Close(); err != nil {
		a.logger.Warn("discord close", zap.Error(err))
	}
	return runErr
}

// Close releases resources held by the App.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	if a.closeFn != nil {
		a.closeFn()
	}
}
