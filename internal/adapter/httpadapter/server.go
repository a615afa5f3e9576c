package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/covid-trends-service/internal/dataset"
	"github.com/couchcryptid/covid-trends-service/internal/session"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reloader runs one dataset load on demand.
type Reloader interface {
	Load(ctx context.Context) error
}

// Server exposes health, readiness, metrics and the chart API.
type Server struct {
	httpServer *http.Server
	session    *session.Session
	reloader   Reloader
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api/v1 routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, sess *session.Session, reloader Reloader, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		session:  sess,
		reloader: reloader,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/chart", s.handleChart)
	mux.HandleFunc("GET /api/v1/countries", s.handleCountries)
	mux.HandleFunc("GET /api/v1/countries/{name}/regions", s.handleSubRegions)
	mux.HandleFunc("GET /api/v1/regions/{name}", s.handleRegion)
	mux.HandleFunc("PUT /api/v1/selection/{name}", s.handleSelect)
	mux.HandleFunc("POST /api/v1/selection", s.handleSelectAll)
	mux.HandleFunc("POST /api/v1/reload", s.handleReload)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.reloader.Load(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"status": "reload failed",
			"error":  err.Error(),
		})
		return
	}

	var loadedAt time.Time
	_ = s.session.Read(func(ds *dataset.DataSet) error {
		loadedAt = ds.LoadedAt()
		return nil
	})
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "reloaded",
		"loadedAt": loadedAt.Format(time.RFC3339),
	})
}

// writeError maps session and dataset errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotLoaded):
		status = http.StatusServiceUnavailable
	case errors.Is(err, session.ErrInvalidParam):
		status = http.StatusBadRequest
	case errors.Is(err, dataset.ErrUnknownRegion):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
