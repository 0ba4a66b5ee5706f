package api

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/slotwatcher/internal/id/uuid"
	"github.com/JakeFAU/slotwatcher/internal/metrics"
	"github.com/JakeFAU/slotwatcher/internal/notify"
	"github.com/JakeFAU/slotwatcher/internal/policy/ratelimit"
	"github.com/JakeFAU/slotwatcher/internal/status"
	"github.com/JakeFAU/slotwatcher/internal/watcher"
)

// Tester delivers a test notice to every channel.
type Tester interface {
	SendTest(ctx context.Context, n notify.Notice) notify.Report
}

// Options tunes the dashboard.
type Options struct {
	BookingURL string
	MinBytes   int
	// TestGuard throttles /api/test; nil disables throttling.
	TestGuard *ratelimit.Limiter
}

// Server wires HTTP handlers to the status store and notifier.
type Server struct {
	router    chi.Router
	store     *status.Store
	tester    Tester
	clock     watcher.Clock
	guard     *ratelimit.Limiter
	dashboard []byte
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	store *status.Store,
	tester Tester,
	clock watcher.Clock,
	opts Options,
	logger *zap.Logger,
) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	page, err := renderDashboard(dashboardView{BookingURL: opts.BookingURL, MinBytes: opts.MinBytes})
	if err != nil {
		return nil, err
	}
	s := &Server{
		store:     store,
		tester:    tester,
		clock:     clock,
		guard:     opts.TestGuard,
		dashboard: page,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware(uuid.New()))
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/", s.index)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(corsMiddleware)
		r.Get("/estado", s.getStatus)
		r.Post("/estado", s.getStatus)
		r.Get("/test", s.sendTest)
		r.Post("/test", s.sendTest)
		r.Post("/toggle", s.toggle)
	})

	s.router = r
	return s, nil
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(s.dashboard); err != nil {
		s.logger.Error("dashboard write failed", zap.Error(err))
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.store.Snapshot().StartedAt == nil {
		writeError(w, http.StatusServiceUnavailable, "monitor not started")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) sendTest(w http.ResponseWriter, r *http.Request) {
	if s.guard != nil {
		if ok, wait := s.guard.Allow(r.URL.Path); !ok {
			secs := int(math.Ceil(wait.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, fmt.Sprintf("Esperá %ds antes de otra prueba", secs))
			return
		}
	}
	snap := s.store.Snapshot()
	report := s.tester.SendTest(r.Context(), notify.Notice{
		Checks: snap.Checks,
		At:     s.clock.Now(),
	})
	for _, name := range slices.Sorted(maps.Keys(report.Delivered)) {
		if report.Delivered[name] {
			s.store.Log(status.LevelSuccess, fmt.Sprintf("✅ Test %s enviado", name))
		}
	}
	for _, e := range report.Errors {
		s.store.Log(status.LevelError, "❌ Test "+e)
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) toggle(w http.ResponseWriter, _ *http.Request) {
	enabled := s.store.Toggle()
	metrics.SetEnabled(enabled)
	msg := "▶️ Notificaciones reanudadas"
	if !enabled {
		msg = "⏸️ Notificaciones pausadas"
	}
	s.store.Log(status.LevelInfo, msg)
	s.logger.Info("notifications toggled", zap.Bool("enabled", enabled))
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
