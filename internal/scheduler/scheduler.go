// Package scheduler owns the polling loop. A single goroutine (the actor
// started by Run) holds the tracked products, the interval and the poller
// handle; every other component talks to it through request methods.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/metrics"
	"github.com/JakeFAU/stockwatch/internal/monitor"
	"github.com/JakeFAU/stockwatch/internal/stock"
)

var (
	// ErrInvalidInterval is returned for intervals outside
	// [1, MaxIntervalMinutes].
	ErrInvalidInterval = errors.New("interval must be a whole number of minutes between 1 and 10080")
	// ErrNoProducts is returned when asked to track nothing.
	ErrNoProducts = errors.New("at least one product must be tracked")
	// ErrClosed is returned once Run has exited.
	ErrClosed = errors.New("scheduler is not running")
)

// MaxIntervalMinutes caps the polling interval at one week.
const MaxIntervalMinutes = 7 * 24 * 60

// ValidInterval reports whether minutes is an accepted polling interval.
func ValidInterval(minutes int) bool {
	return minutes >= 1 && minutes <= MaxIntervalMinutes
}

// State is the lifecycle state of the poller task.
type State int

const (
	// Stopped means no poller goroutine exists.
	Stopped State = iota
	// Running means a poller goroutine is ticking.
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// MarshalText renders the state for JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Checker runs one polling pass.
type Checker interface {
	Check(ctx context.Context, products []stock.Product) monitor.Report
}

// Ticker abstracts time.Ticker for tests.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Config is the initial scheduler setup.
type Config struct {
	IntervalMinutes int
	Products        []stock.Product
	SkipWeekends    bool
}

// Snapshot is a read-only copy of scheduler state.
type Snapshot struct {
	State           State           `json:"state"`
	IntervalMinutes int             `json:"interval_minutes"`
	Products        []stock.Product `json:"products"`
	Now             time.Time       `json:"now"`
	StartedAt       time.Time       `json:"started_at"`
	NextTickAt      time.Time       `json:"next_tick_at"`
	LastTickAt      time.Time       `json:"last_tick_at"`
	WeekendPaused   bool            `json:"weekend_paused"`
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithTicker replaces the ticker factory.
func WithTicker(fn func(time.Duration) Ticker) Option {
	return func(s *Scheduler) { s.newTicker = fn }
}

// WithClock replaces the clock used for weekend checks and snapshots.
func WithClock(clock stock.Clock) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// WithIDGenerator replaces the tick ID generator.
func WithIDGenerator(ids stock.IDGenerator) Option {
	return func(s *Scheduler) { s.ids = ids }
}

// Scheduler drives the Checker on a fixed interval.
type Scheduler struct {
	checker      Checker
	logger       *zap.Logger
	clock        stock.Clock
	ids          stock.IDGenerator
	newTicker    func(time.Duration) Ticker
	skipWeekends bool

	initial  Config
	requests chan func(*loop)
	closed   chan struct{}
}

// New validates cfg and builds a Scheduler. Nothing runs until Run.
func New(cfg Config, checker Checker, logger *zap.Logger, opts ...Option) (*Scheduler, error) {
	if !ValidInterval(cfg.IntervalMinutes) {
		return nil, ErrInvalidInterval
	}
	if len(cfg.Products) == 0 {
		return nil, ErrNoProducts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		checker:      checker,
		logger:       logger,
		clock:        systemClock{},
		ids:          noIDs{},
		newTicker:    newTimeTicker,
		skipWeekends: cfg.SkipWeekends,
		initial: Config{
			IntervalMinutes: cfg.IntervalMinutes,
			Products:        append([]stock.Product(nil), cfg.Products...),
			SkipWeekends:    cfg.SkipWeekends,
		},
		requests: make(chan func(*loop)),
		closed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run serves requests until ctx is canceled, then stops the poller.
func (s *Scheduler) Run(ctx context.Context) {
	l := &loop{
		s:        s,
		ctx:      ctx,
		interval: s.initial.IntervalMinutes,
		products: s.initial.Products,
	}
	defer close(s.closed)
	for {
		select {
		case <-ctx.Done():
			l.stopPoller()
			return
		case fn := <-s.requests:
			fn(l)
		}
	}
}

// call executes fn on the actor goroutine and waits for it to finish.
func (s *Scheduler) call(ctx context.Context, fn func(*loop)) error {
	done := make(chan struct{})
	req := func(l *loop) {
		defer close(done)
		fn(l)
	}
	select {
	case s.requests <- req:
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// Start launches the poller with an immediate first tick. It is a no-op
// when the poller is already running.
func (s *Scheduler) Start(ctx context.Context) error {
	return s.call(ctx, func(l *loop) {
		if l.poller == nil {
			l.startPoller(true, "start")
		}
	})
}

// Stop cancels the poller and waits for it to exit.
func (s *Scheduler) Stop(ctx context.Context) error {
	return s.call(ctx, func(l *loop) {
		l.stopPoller()
	})
}

// EnsureRunning starts the poller if it is stopped and reports whether it
// had to.
func (s *Scheduler) EnsureRunning(ctx context.Context) (bool, error) {
	var started bool
	err := s.call(ctx, func(l *loop) {
		if l.poller == nil {
			l.startPoller(true, "watchdog")
			started = true
		}
	})
	return started, err
}

// SetInterval changes the polling interval. A running poller is restarted
// and its next tick comes one full interval later.
func (s *Scheduler) SetInterval(ctx context.Context, minutes int) error {
	if !ValidInterval(minutes) {
		return ErrInvalidInterval
	}
	return s.call(ctx, func(l *loop) {
		l.interval = minutes
		l.restart("set_interval")
	})
}

// SetProducts replaces the tracked products. A running poller is restarted
// and picks up the new set on its next tick.
func (s *Scheduler) SetProducts(ctx context.Context, products []stock.Product) error {
	if len(products) == 0 {
		return ErrNoProducts
	}
	products = append([]stock.Product(nil), products...)
	return s.call(ctx, func(l *loop) {
		l.products = products
		l.restart("set_products")
	})
}

// Snapshot returns a copy of the current state.
func (s *Scheduler) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.call(ctx, func(l *loop) {
		snap = l.snapshot()
	})
	return snap, err
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// loop is the state owned by the actor goroutine.
type loop struct {
	s        *Scheduler
	ctx      context.Context
	interval int
	products []stock.Product
	poller   *poller
}

func (l *loop) startPoller(immediate bool, reason string) {
	interval := time.Duration(l.interval) * time.Minute
	ctx, cancel := context.WithCancel(l.ctx)
	p := &poller{
		s:         l.s,
		cancel:    cancel,
		done:      make(chan struct{}),
		startedAt: l.s.clock.Now(),
		interval:  interval,
		products:  append([]stock.Product(nil), l.products...),
		ticker:    l.s.newTicker(interval),
	}
	l.poller = p
	metrics.ObserveSchedulerStart(reason)
	l.s.logger.Info("poller started",
		zap.String("reason", reason),
		zap.Int("interval_minutes", l.interval),
		zap.Strings("products", stock.IDs(p.products)),
		zap.Bool("immediate", immediate),
	)
	go p.run(ctx, immediate)
}

func (l *loop) stopPoller() {
	if l.poller == nil {
		return
	}
	l.poller.cancel()
	<-l.poller.done
	l.poller = nil
	metrics.ObserveSchedulerStop()
	l.s.logger.Info("poller stopped")
}

// restart swaps the poller for one built from the current config. A
// stopped scheduler only keeps the new config.
func (l *loop) restart(reason string) {
	if l.poller == nil {
		l.s.logger.Info("scheduler config updated while stopped",
			zap.String("reason", reason),
			zap.Int("interval_minutes", l.interval),
			zap.Strings("products", stock.IDs(l.products)),
		)
		return
	}
	l.stopPoller()
	l.startPoller(false, reason)
}

func (l *loop) snapshot() Snapshot {
	now := l.s.clock.Now()
	snap := Snapshot{
		State:           Stopped,
		IntervalMinutes: l.interval,
		Products:        append([]stock.Product(nil), l.products...),
		Now:             now,
		WeekendPaused:   l.s.skipWeekends && IsWeekend(now),
	}
	if p := l.poller; p != nil {
		snap.State = Running
		snap.StartedAt = p.startedAt
		snap.NextTickAt = p.nextTick(now)
		if last := p.lastTick.Load(); last != 0 {
			snap.LastTickAt = time.Unix(0, last).In(now.Location())
		}
	}
	return snap
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type noIDs struct{}

func (noIDs) NewID() (string, error) { return "", fmt.Errorf("no id generator configured") }
