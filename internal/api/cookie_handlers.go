package api

import (
	"net/http"

	"github.com/mlindner/flowsync/internal/logger"
	"github.com/mlindner/flowsync/internal/models"
)

type importCookiesRequest struct {
	Cookies []models.Cookie `json:"cookies"`
}

func (s *Server) handleImportCookies(w http.ResponseWriter, r *http.Request) {
	id, err := profileID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req importCookiesRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	if err := s.ProfileService.ImportCookies(r.Context(), id, req.Cookies); err != nil {
		handleError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("imported %d cookies for profile %d", len(req.Cookies), id)
	respondJSON(w, r, http.StatusOK, map[string]any{"id": id, "imported": len(req.Cookies)})
}

func (s *Server) handleExportCookies(w http.ResponseWriter, r *http.Request) {
	id, err := profileID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	cookies, err := s.ProfileService.ExportCookies(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"cookies": cookies})
}

// handleVerifyCookies runs a live extraction against the stored cookies
// to confirm the session is still usable.
func (s *Server) handleVerifyCookies(w http.ResponseWriter, r *http.Request) {
	id, err := profileID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	valid, err := s.ProfileService.VerifyCookies(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"id": id, "valid": valid})
}
