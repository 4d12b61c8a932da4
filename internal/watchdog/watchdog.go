// Package watchdog restarts a stopped poller at the start of each week.
package watchdog

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Spec fires at Monday 00:00 in the watchdog's location.
const Spec = "0 0 * * MON"

// Starter is satisfied by *scheduler.Scheduler.
type Starter interface {
	EnsureRunning(ctx context.Context) (bool, error)
}

// Watchdog runs a cron job that calls EnsureRunning once a week.
type Watchdog struct {
	starter  Starter
	logger   *zap.Logger
	loc      *time.Location
	schedule cron.Schedule
	cron     *cron.Cron
	baseCtx  context.Context
}

// New builds a Watchdog evaluating Spec in loc. A nil loc means time.Local.
func New(starter Starter, loc *time.Location, logger *zap.Logger) (*Watchdog, error) {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	schedule, err := cron.ParseStandard(Spec)
	if err != nil {
		return nil, fmt.Errorf("parse watchdog schedule: %w", err)
	}
	return &Watchdog{
		starter:  starter,
		logger:   logger,
		loc:      loc,
		schedule: schedule,
		cron:     cron.New(cron.WithLocation(loc)),
		baseCtx:  context.Background(),
	}, nil
}

// Start registers the job and starts the cron runner. Jobs use ctx.
func (w *Watchdog) Start(ctx context.Context) {
	if ctx != nil {
		w.baseCtx = ctx
	}
	w.cron.Schedule(w.schedule, cron.FuncJob(func() {
		w.Check(w.baseCtx)
	}))
	w.cron.Start()
	w.logger.Info("watchdog started",
		zap.String("spec", Spec),
		zap.Time("next", w.Next(time.Now())),
	)
}

// Stop halts the cron runner and waits for a running job to finish.
func (w *Watchdog) Stop() {
	<-w.cron.Stop().Done()
	w.logger.Info("watchdog stopped")
}

// Check restarts the poller if it is stopped.
func (w *Watchdog) Check(ctx context.Context) {
	started, err := w.starter.EnsureRunning(ctx)
	switch {
	case err != nil:
		w.logger.Error("watchdog could not check poller", zap.Error(err))
	case started:
		w.logger.Info("poller was stopped; restarted by watchdog")
	default:
		w.logger.Debug("watchdog check: poller running")
	}
}

// Next returns the next firing time after now, in the watchdog location.
// It doubles as the weekday resume time shown while paused for the weekend.
func (w *Watchdog) Next(now time.Time) time.Time {
	return w.schedule.Next(now.In(w.loc))
}
