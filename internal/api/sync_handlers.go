package api

import (
	"net/http"

	"github.com/mlindner/flowsync/internal/logger"
)

// handleEnqueueSync queues a background batch sync and returns immediately.
func (s *Server) handleEnqueueSync(w http.ResponseWriter, r *http.Request) {
	if err := s.Queue.EnqueueSyncAll(); err != nil {
		handleError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("batch sync enqueued")
	respondJSON(w, r, http.StatusAccepted, map[string]any{"queued": true})
}

// handleSyncNow runs a batch sync synchronously and returns the report.
// Extraction serializes on the browser, so this can take a while.
func (s *Server) handleSyncNow(w http.ResponseWriter, r *http.Request) {
	report, err := s.SyncService.SyncAll(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, report)
}

// handleEnqueueProfileSync queues a background sync for a single profile.
func (s *Server) handleEnqueueProfileSync(w http.ResponseWriter, r *http.Request) {
	id, err := profileID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	profile, err := s.ProfileService.GetProfile(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if err := s.Queue.EnqueueSyncProfile(profile.ID); err != nil {
		handleError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("sync enqueued for profile %d (%s)", profile.ID, profile.Name)
	respondJSON(w, r, http.StatusAccepted, map[string]any{"queued": true, "id": profile.ID})
}
