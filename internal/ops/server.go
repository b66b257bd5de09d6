// Package ops serves the operational HTTP endpoints: liveness, bot status
// and Prometheus metrics.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yangwenmai/anonrelay/internal/poster"
)

// StatusSource reports the synthetic poster's state.
type StatusSource interface {
	Status() poster.Status
}

// Server holds the HTTP handlers and dependencies.
type Server struct {
	poster    StatusSource
	startedAt time.Time
	mux       *http.ServeMux
}

// New creates an ops server.
func New(p StatusSource) *Server {
	srv := &Server{poster: p, startedAt: time.Now(), mux: http.NewServeMux()}
	srv.routes()
	return srv
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("ops server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// GET /healthz
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": versioninfo.Short()})
}

// ---------------------------------------------------------------------------
// GET /status
// ---------------------------------------------------------------------------

type statusResponse struct {
	Version string        `json:"version"`
	Uptime  string        `json:"uptime"`
	Poster  poster.Status `json:"poster"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Version: versioninfo.Short(),
		Uptime:  time.Since(s.startedAt).Round(time.Second).String(),
		Poster:  s.poster.Status(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
