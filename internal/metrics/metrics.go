// Package metrics exposes Prometheus collectors for the stock watcher.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	checksTotal                *prometheus.CounterVec
	fetchErrorsTotal           *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	notificationsTotal         *prometheus.CounterVec
	ticksTotal                 *prometheus.CounterVec
	schedulerRestartsTotal     *prometheus.CounterVec
	schedulerRunning           prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	rateLimitDelaySeconds      *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		checksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_checks_total",
				Help: "Total number of product pages checked, labeled by product and extracted status.",
			},
			[]string{"product", "status"},
		)

		fetchErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_fetch_errors_total",
				Help: "Total number of failed product page fetches, labeled by product and error kind.",
			},
			[]string{"product", "kind"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockwatch_fetch_duration_seconds",
				Help:    "Histogram of product page fetch latencies.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"product"},
		)

		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_notifications_total",
				Help: "Total number of channel announcements, labeled by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		ticksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_ticks_total",
				Help: "Total number of scheduler ticks, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		schedulerRestartsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_scheduler_restarts_total",
				Help: "Total number of poller starts and restarts, labeled by reason.",
			},
			[]string{"reason"},
		)

		schedulerRunning = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockwatch_scheduler_running",
				Help: "1 while the poller task is running, 0 while stopped.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockwatch_fetch_ratelimit_delay_seconds",
				Help:    "Time fetches spent waiting on the per-host rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"host"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCheck records a completed page check and its extracted status.
func ObserveCheck(product, status string) {
	Init()
	checksTotal.WithLabelValues(product, status).Inc()
}

// ObserveFetch records the latency of a fetch attempt.
func ObserveFetch(product string, duration time.Duration) {
	Init()
	fetchDurationSeconds.WithLabelValues(product).Observe(duration.Seconds())
}

// ObserveFetchError increments the fetch error counter.
func ObserveFetchError(product, kind string) {
	Init()
	fetchErrorsTotal.WithLabelValues(product, kind).Inc()
}

// ObserveNotification records an announcement attempt.
func ObserveNotification(kind string, sent bool) {
	Init()
	outcome := "sent"
	if !sent {
		outcome = "failed"
	}
	notificationsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveTick records a scheduler tick ("run" or "weekend_skip").
func ObserveTick(outcome string) {
	Init()
	ticksTotal.WithLabelValues(outcome).Inc()
}

// ObserveSchedulerStart records a poller start and flips the running gauge.
func ObserveSchedulerStart(reason string) {
	Init()
	schedulerRestartsTotal.WithLabelValues(reason).Inc()
	schedulerRunning.Set(1)
}

// ObserveSchedulerStop flips the running gauge off.
func ObserveSchedulerStop() {
	Init()
	schedulerRunning.Set(0)
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records time spent waiting for a rate limit token.
func ObserveRateLimitDelay(host string, delay time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(host).Observe(delay.Seconds())
}
