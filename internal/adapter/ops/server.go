package ops

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// readyTimeout bounds a single readiness probe.
const readyTimeout = 2 * time.Second

// ReadinessChecker reports whether the dashboard is ready to be shown.
// The view-model implements this: ready means the initial load succeeded
// at least once.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the operational endpoints: /healthz, /readyz, /metrics.
// It is separate from the rendered dashboard output, which goes to stdout.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// New creates the ops server. Readiness is delegated to the checker so
// /readyz returns 503 until the first initial load settles successfully.
func New(addr string, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("ops server starting", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

// Shutdown drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.srv.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, statusResponse{Status: "healthy"})
}

func (s *Server) handleReadyz(ready ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := ready.CheckReadiness(ctx); err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, statusResponse{
				Status: "not ready",
				Error:  err.Error(),
			})
			return
		}
		s.writeJSON(w, http.StatusOK, statusResponse{Status: "ready"})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode status response", "error", err)
	}
}
