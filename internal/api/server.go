package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/metrics"
	"github.com/JakeFAU/stockwatch/internal/scheduler"
	"github.com/JakeFAU/stockwatch/internal/stock"
)

// StatusSource reports scheduler state.
type StatusSource interface {
	Snapshot(ctx context.Context) (scheduler.Snapshot, error)
}

// Server wires HTTP handlers to the scheduler.
type Server struct {
	router   chi.Router
	status   StatusSource
	catalog  *stock.Catalog
	resumeAt func(time.Time) time.Time
	logger   *zap.Logger
}

type statusResponse struct {
	State           string          `json:"state"`
	IntervalMinutes int             `json:"interval_minutes"`
	Products        []stock.Product `json:"products"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	NextTickAt      *time.Time      `json:"next_tick_at,omitempty"`
	LastTickAt      *time.Time      `json:"last_tick_at,omitempty"`
	WeekendPaused   bool            `json:"weekend_paused"`
	ResumeAt        *time.Time      `json:"resume_at,omitempty"`
}

// NewServer constructs a Server with middleware and routes. resumeAt may be
// nil when weekend skipping is off.
func NewServer(status StatusSource, catalog *stock.Catalog, resumeAt func(time.Time) time.Time, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		status:   status,
		catalog:  catalog,
		resumeAt: resumeAt,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(10 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.getStatus)
		r.Get("/products", s.listProducts)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz reports ready only while the poller is running.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	snap, err := s.status.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if snap.State != scheduler.Running {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": snap.State.String()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.status.Snapshot(r.Context())
	if err != nil {
		s.logger.Error("snapshot failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	resp := statusResponse{
		State:           snap.State.String(),
		IntervalMinutes: snap.IntervalMinutes,
		Products:        snap.Products,
		StartedAt:       timePtr(snap.StartedAt),
		NextTickAt:      timePtr(snap.NextTickAt),
		LastTickAt:      timePtr(snap.LastTickAt),
		WeekendPaused:   snap.WeekendPaused,
	}
	if snap.WeekendPaused && s.resumeAt != nil {
		resp.ResumeAt = timePtr(s.resumeAt(snap.Now))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listProducts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"products": s.catalog.Products(),
		"tokens":   s.catalog.Tokens(),
	})
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
