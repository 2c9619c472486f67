package api

import (
	"context"
	"net/http"
	"time"

	"github.com/mlindner/flowsync/internal/logger"
)

// handleHealth returns a liveness probe - always returns 200 OK.
// This endpoint indicates the server process is running.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleReady returns a readiness probe - checks if the service is ready to accept traffic.
// Returns 200 if the database is reachable, 503 otherwise.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if err := s.checkDatabase(ctx); err != nil {
		log.Warn("readiness check failed - database: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("Database unavailable"))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

// checkDatabase verifies database connectivity with a simple query.
func (s *Server) checkDatabase(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.DB.PingContext(ctx)
}

// handleStatus reports the syncer's process-wide counters and the
// browser gate state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"syncer": s.SyncService.Status()}
	if s.Browser != nil {
		status["browser"] = map[string]any{"busy": s.Browser.Busy()}
	}
	respondJSON(w, r, http.StatusOK, status)
}
