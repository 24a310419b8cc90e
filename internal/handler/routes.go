package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes builds the HTTP API.
func Routes(deps *Deps) http.Handler {
	a := &api{
		deps:    deps,
		log:     deps.Log,
		limiter: newMoveLimiter(deps.Config.RateLimit),
	}

	r := chi.NewRouter()
	r.Use(a.recovery)
	r.Use(requestID)
	r.Use(a.logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			a.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Get("/zones", a.HandleZones)
		r.Get("/zones/{zone}/establishments", a.HandleListEstablishments)

		// Editor endpoints
		r.Group(func(r chi.Router) {
			r.Use(a.editorAuth)
			r.Get("/me", a.HandleMe)
			r.Get("/zones/{zone}/moves", a.HandleRecentMoves)
			r.Post("/zones/{zone}/grid-move", a.HandleGridMove)
		})
	})

	return r
}
