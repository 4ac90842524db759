// Package server exposes health, readiness, metrics and a dry-run preview
// over HTTP while the notifier runs in scheduler mode.
package server

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "team-notifier/internal/common/errors"
	"team-notifier/internal/common/logger"
	"team-notifier/internal/runner"
)

// Previewer performs a dry run.
type Previewer interface {
	Preview(ctx context.Context) (*runner.Preview, error)
}

// Check reports whether one backend is reachable.
type Check func(ctx context.Context) error

type Server struct {
	previewer Previewer
	checks    map[string]Check
	logger    logger.Logger
	http      *http.Server
}

func New(addr string, previewer Previewer, checks map[string]Check, log logger.Logger) *Server {
	s := &Server{previewer: previewer, checks: checks, logger: log}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/preview", s.preview)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", map[string]interface{}{"addr": s.http.Addr})
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, healthResponse{Status: "healthy"})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "ready", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			s.logger.Warn("Readiness check failed", map[string]interface{}{"check": name, "error": err.Error()})
			resp.Checks[name] = err.Error()
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	respondJSON(w, r, status, resp)
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	p, err := s.previewer.Preview(r.Context())
	if err != nil {
		s.logger.Error("Preview failed", map[string]interface{}{"error": err.Error()})
		respondError(w, r, statusFor(err), err)
		return
	}
	respondJSON(w, r, http.StatusOK, p)
}

func statusFor(err error) int {
	stdErr, ok := apperrors.AsStandard(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch apperrors.GetErrorCategory(stdErr.Code) {
	case "SOURCE":
		if stdErr.Code == apperrors.ErrCodeTeamNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case "NOTIFICATION":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, r *http.Request, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	if stdErr, ok := apperrors.AsStandard(err); ok {
		resp.Code = string(stdErr.Code)
	}
	respondJSON(w, r, status, resp)
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
