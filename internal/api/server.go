// Package api exposes the HTTP interface for the crawler service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-crawler/internal/crawler"
	"github.com/JakeFAU/site-crawler/internal/metrics"
	"github.com/JakeFAU/site-crawler/internal/middleware"
	"github.com/JakeFAU/site-crawler/internal/session"
)

const requestTimeout = 60 * time.Second

// Sessions is the crawl controller the handlers drive.
type Sessions interface {
	Start(ctx context.Context, p session.Params) (string, error)
	Stop() error
	Status() session.Snapshot
}

// Server wires HTTP handlers to the session manager.
type Server struct {
	router   chi.Router
	sessions Sessions
	defaults crawler.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes. defaults fills
// request fields the caller leaves out.
func NewServer(
	sessions Sessions,
	defaults crawler.Config,
	ids middleware.RequestIDGenerator,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		sessions: sessions,
		defaults: defaults,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID(ids))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Metrics)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/crawl", func(r chi.Router) {
		r.Post("/start", s.startCrawl)
		r.Post("/stop", s.stopCrawl)
		r.Get("/status", s.crawlStatus)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type startRequest struct {
	URL        string `json:"url"`
	MaxPages   *int   `json:"maxPages"`
	NumThreads *int   `json:"numThreads"`
	MaxDepth   *int   `json:"maxDepth"`
}

type startResponse struct {
	RunID   string `json:"run_id"`
	Message string `json:"message"`
}

func (s *Server) startCrawl(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	params := session.Params{
		URL:        req.URL,
		MaxPages:   valueOrDefault(req.MaxPages, s.defaults.MaxPages),
		NumThreads: valueOrDefault(req.NumThreads, s.defaults.Workers),
		MaxDepth:   valueOrDefault(req.MaxDepth, s.defaults.MaxDepth),
	}
	if params.MaxPages <= 0 || params.NumThreads <= 0 || params.MaxDepth < 0 {
		s.writeError(w, http.StatusBadRequest, "maxPages and numThreads must be positive, maxDepth non-negative")
		return
	}

	runID, err := s.sessions.Start(r.Context(), params)
	switch {
	case errors.Is(err, session.ErrCrawlRunning):
		s.writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, session.ErrInvalidParams):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error("start crawl failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err),
		)
		s.writeError(w, http.StatusInternalServerError, "failed to start crawl")
		return
	}
	s.writeJSON(w, http.StatusAccepted, startResponse{RunID: runID, Message: "crawl started"})
}

func (s *Server) stopCrawl(w http.ResponseWriter, _ *http.Request) {
	if err := s.sessions.Stop(); err != nil {
		if errors.Is(err, session.ErrNotRunning) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "crawl stopped"})
}

func (s *Server) crawlStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.sessions.Status())
}

func valueOrDefault[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}
	return *ptr
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
