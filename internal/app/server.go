package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/deusflow/trendpulse/internal/logger"
	"github.com/deusflow/trendpulse/internal/metrics"
	"github.com/deusflow/trendpulse/internal/storage"
)

// Controller is what the HTTP surface drives. *App implements it.
type Controller interface {
	Runner
	Stats(ctx context.Context) map[string]interface{}
	Article(ctx context.Context, id string) (storage.Record, error)
}

// Server exposes health, metrics and manual triggers over HTTP.
type Server struct {
	ctl     Controller
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewServer(ctl Controller, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.Global
	}
	return &Server{ctl: ctl, metrics: m, log: logger.With("http")}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /metrics", s.metricsHandler)
	mux.HandleFunc("POST /trigger", s.triggerHandler)
	mux.HandleFunc("POST /trigger/autonomous", s.triggerAutonomousHandler)
	mux.HandleFunc("GET /trends/preview", s.previewHandler)
	mux.HandleFunc("GET /articles/{id}", s.articleHandler)
	return mux
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := s.metrics.GetStats()

	status := http.StatusOK
	response := map[string]interface{}{
		"status":     "ok",
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
		"last_topic": stats["last_topic"],
	}
	if !s.metrics.Healthy() {
		status = http.StatusServiceUnavailable
		response["status"] = "error"
	}
	writeJSON(w, status, response)
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	stats := s.metrics.GetStats()
	for k, v := range s.ctl.Stats(r.Context()) {
		stats[k] = v
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) triggerHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.ctl.RunOnce(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) triggerAutonomousHandler(w http.ResponseWriter, r *http.Request) {
	results, err := s.ctl.RunAutonomous(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (s *Server) previewHandler(w http.ResponseWriter, r *http.Request) {
	p, err := s.ctl.Preview(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) articleHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := s.ctl.Article(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	default:
		s.log.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
