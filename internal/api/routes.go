package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Post("/sync", s.handleEnqueueSync)
		r.Post("/sync/now", s.handleSyncNow)

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", s.handleListProfiles)
			r.Post("/", s.handleCreateProfile)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetProfile)
				r.Delete("/", s.handleDeleteProfile)
				r.Post("/active", s.handleSetActive)
				r.Post("/sync", s.handleEnqueueProfileSync)
				r.Post("/cookies", s.handleImportCookies)
				r.Get("/cookies", s.handleExportCookies)
				r.Post("/cookies/verify", s.handleVerifyCookies)
			})
		})
	})

	return r
}
