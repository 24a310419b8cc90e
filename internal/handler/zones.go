package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pattamap/server/internal/data"
)

const (
	defaultMoveLimit = 50
	maxMoveLimit     = 200
)

// HandleZones handles GET /api/zones.
func (a *api) HandleZones(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]any{"zones": a.deps.Zones.All()})
}

type establishmentDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Icon    string `json:"icon"`
	GridRow int    `json:"grid_row"`
	GridCol int    `json:"grid_col"`
}

// HandleListEstablishments handles GET /api/zones/{zone}/establishments.
func (a *api) HandleListEstablishments(w http.ResponseWriter, r *http.Request) {
	zoneID, ok := a.zoneParam(w, r)
	if !ok {
		return
	}
	rows, err := a.deps.Establishments.List(r.Context(), zoneID)
	if err != nil {
		a.internalError(w, "list establishments", err)
		return
	}
	out := make([]establishmentDTO, 0, len(rows))
	for _, e := range rows {
		if e.GridRow == nil || e.GridCol == nil {
			continue
		}
		out = append(out, establishmentDTO{
			ID:      e.ID,
			Name:    e.Name,
			Type:    e.Category,
			Icon:    e.Icon,
			GridRow: *e.GridRow,
			GridCol: *e.GridCol,
		})
	}
	a.respondJSON(w, http.StatusOK, map[string]any{"zone": zoneID, "establishments": out})
}

// HandleMe handles GET /api/me.
func (a *api) HandleMe(w http.ResponseWriter, r *http.Request) {
	ed := editorFrom(r.Context())
	a.respondJSON(w, http.StatusOK, map[string]any{"name": ed.Name, "can_edit": ed.CanEdit})
}

type moveLogDTO struct {
	EstablishmentID string    `json:"establishment_id"`
	FromRow         *int      `json:"from_row"`
	FromCol         *int      `json:"from_col"`
	ToRow           *int      `json:"to_row"`
	ToCol           *int      `json:"to_col"`
	SwapWith        string    `json:"swap_with,omitempty"`
	Editor          string    `json:"editor"`
	RequestID       string    `json:"request_id,omitempty"`
	At              time.Time `json:"at"`
}

// HandleRecentMoves handles GET /api/zones/{zone}/moves.
func (a *api) HandleRecentMoves(w http.ResponseWriter, r *http.Request) {
	zoneID, ok := a.zoneParam(w, r)
	if !ok {
		return
	}
	limit := defaultMoveLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			a.respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(max(n, 1), maxMoveLimit)
	}

	entries, err := a.deps.Moves.Recent(r.Context(), zoneID, limit)
	if err != nil {
		a.internalError(w, "recent moves", err)
		return
	}
	out := make([]moveLogDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, moveLogDTO{
			EstablishmentID: e.EstablishmentID,
			FromRow:         e.FromRow,
			FromCol:         e.FromCol,
			ToRow:           e.ToRow,
			ToCol:           e.ToCol,
			SwapWith:        e.SwapWith,
			Editor:          e.Editor,
			RequestID:       e.RequestID,
			At:              e.CreatedAt,
		})
	}
	a.respondJSON(w, http.StatusOK, map[string]any{"zone": zoneID, "moves": out})
}

func (a *api) zoneParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	zoneID := chi.URLParam(r, "zone")
	if _, err := a.deps.Zones.Get(zoneID); errors.Is(err, data.ErrUnknownZone) {
		a.respondError(w, http.StatusNotFound, "Unknown zone")
		return "", false
	}
	return zoneID, true
}
