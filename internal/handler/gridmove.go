package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pattamap/server/internal/data"
	"github.com/pattamap/server/internal/persist"
	"github.com/pattamap/server/internal/scripting"
	"go.uber.org/zap"
)

type gridMoveRequest struct {
	EstablishmentID string `json:"establishmentId"`
	GridRow         int    `json:"grid_row"`
	GridCol         int    `json:"grid_col"`
	Zone            string `json:"zone"`
	SwapWithID      string `json:"swap_with_id,omitempty"`
}

type gridMoveResponse struct {
	Success bool                `json:"success"`
	Moved   []persist.Placement `json:"moved"`
}

// HandleGridMove handles POST /api/zones/{zone}/grid-move.
func (a *api) HandleGridMove(w http.ResponseWriter, r *http.Request) {
	ed := editorFrom(r.Context())
	if ed == nil || !ed.CanEdit {
		a.respondError(w, http.StatusForbidden, "Editing not permitted")
		return
	}

	var req gridMoveRequest
	body := http.MaxBytesReader(w, r.Body, a.deps.Config.HTTP.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		a.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.EstablishmentID = strings.TrimSpace(req.EstablishmentID)
	if req.EstablishmentID == "" {
		a.respondError(w, http.StatusBadRequest, "establishmentId is required")
		return
	}
	if req.SwapWithID == req.EstablishmentID {
		a.respondError(w, http.StatusBadRequest, "Cannot swap an establishment with itself")
		return
	}

	zoneID := chi.URLParam(r, "zone")
	zone, err := a.deps.Zones.Get(zoneID)
	if errors.Is(err, data.ErrUnknownZone) {
		a.respondError(w, http.StatusNotFound, "Unknown zone")
		return
	}
	if req.Zone != "" && req.Zone != zoneID {
		a.respondError(w, http.StatusBadRequest, "Zone does not match the request path")
		return
	}
	if req.GridRow < 1 || req.GridCol < 1 || req.GridRow > zone.MaxRows || req.GridCol > zone.MaxCols {
		a.respondError(w, http.StatusBadRequest, "Position out of bounds")
		return
	}

	if !a.limiter.Allow(ed.Name) {
		a.respondError(w, http.StatusTooManyRequests, "Too many moves, slow down")
		return
	}

	ctx := r.Context()
	mover, err := a.deps.Establishments.Get(ctx, req.EstablishmentID)
	if err != nil {
		a.internalError(w, "load establishment", err)
		return
	}
	if mover == nil || mover.Zone != zoneID {
		a.respondError(w, http.StatusNotFound, "Establishment not found")
		return
	}

	if ok, reason := a.canPlace(zone, mover.ID, mover.Category, req.GridRow, req.GridCol); !ok {
		a.respondError(w, http.StatusUnprocessableEntity, reason)
		return
	}
	if req.SwapWithID != "" && mover.GridRow != nil && mover.GridCol != nil {
		partner, err := a.deps.Establishments.Get(ctx, req.SwapWithID)
		if err != nil {
			a.internalError(w, "load swap partner", err)
			return
		}
		// A partner outside this zone is left for ApplyMove to reject as a conflict.
		if partner != nil && partner.Zone == zoneID {
			if ok, reason := a.canPlace(zone, partner.ID, partner.Category, *mover.GridRow, *mover.GridCol); !ok {
				a.respondError(w, http.StatusUnprocessableEntity, reason)
				return
			}
		}
	}

	moved, err := a.deps.Establishments.ApplyMove(ctx, persist.MoveRequest{
		Zone:       zoneID,
		ID:         req.EstablishmentID,
		Row:        req.GridRow,
		Col:        req.GridCol,
		SwapWithID: req.SwapWithID,
		Editor:     ed.Name,
		RequestID:  requestIDFrom(ctx),
	})
	switch {
	case errors.Is(err, persist.ErrNotFound):
		a.respondError(w, http.StatusNotFound, "Establishment not found")
		return
	case errors.Is(err, persist.ErrConflict):
		a.log.Info("grid move rejected",
			zap.String("zone", zoneID),
			zap.String("establishment", req.EstablishmentID),
			zap.Error(err))
		a.respondError(w, http.StatusConflict, persist.ErrConflict.Error())
		return
	case err != nil:
		a.internalError(w, "apply move", err)
		return
	}

	a.log.Info("grid move applied",
		zap.String("zone", zoneID),
		zap.String("establishment", req.EstablishmentID),
		zap.Int("row", req.GridRow),
		zap.Int("col", req.GridCol),
		zap.String("swap_with", req.SwapWithID),
		zap.String("editor", ed.Name))
	a.respondJSON(w, http.StatusOK, gridMoveResponse{Success: true, Moved: moved})
}

func (a *api) canPlace(zone data.ZoneInfo, id, typ string, row, col int) (bool, string) {
	if a.deps.Rules == nil {
		return true, ""
	}
	return a.deps.Rules.CanPlace(scripting.PlacementContext{
		Zone:    zone.ID,
		Type:    typ,
		ID:      id,
		Row:     row,
		Col:     col,
		MaxRows: zone.MaxRows,
		MaxCols: zone.MaxCols,
	})
}

func (a *api) internalError(w http.ResponseWriter, what string, err error) {
	a.log.Error(what, zap.Error(err))
	a.respondError(w, http.StatusInternalServerError, "Internal server error")
}
