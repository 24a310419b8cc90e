package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type api struct {
	deps    *Deps
	log     *zap.Logger
	limiter *moveLimiter
}

// respondJSON writes a JSON response.
func (a *api) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Warn("encode response", zap.Error(err))
	}
}

// respondError writes an error JSON response.
func (a *api) respondError(w http.ResponseWriter, status int, message string) {
	a.respondJSON(w, status, map[string]string{"error": message})
}
