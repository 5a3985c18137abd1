// Package server exposes health and scheduler status over HTTP while
// the recurring search loop runs.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// StatusSnapshot reports scheduler state for the /status endpoint.
type StatusSnapshot struct {
	Running      bool       `json:"running"`
	RunCount     int64      `json:"run_count"`
	FailCount    int64      `json:"fail_count"`
	SkippedSlots int64      `json:"skipped_slots"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	NextRun      *time.Time `json:"next_run,omitempty"`
}

// StatusFunc supplies the current scheduler state.
type StatusFunc func() StatusSnapshot

// Config controls server binding and timeouts.
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server hosts the health and status endpoints.
type Server struct {
	cfg    Config
	health *HealthManager
	status StatusFunc
	log    *zap.Logger

	router chi.Router
	http   *http.Server
}

// New creates a server. The status function may be nil, in which case
// /status reports an empty snapshot.
func New(cfg Config, health *HealthManager, status StatusFunc, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if health == nil {
		health = NewHealthManager("dev")
	}

	s := &Server{
		cfg:    cfg,
		health: health,
		status: status,
		log:    log,
	}
	s.router = s.buildRouter()
	s.http = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.cfg.Port
}

// Start serves until the context is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("status server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("status server: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown status server: %w", err)
	}
	s.log.Info("status server stopped")
	return nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.health.HealthHandler)
	r.Get("/health/live", s.health.LivenessHandler)
	r.Get("/health/ready", s.health.ReadinessHandler)
	r.Get("/status", s.statusHandler)
	r.Get("/version", s.versionHandler)

	return r
}

func (s *Server) statusHandler(w http.ResponseWriter, _ *http.Request) {
	var snap StatusSnapshot
	if s.status != nil {
		snap = s.status()
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) versionHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.health.version})
}
