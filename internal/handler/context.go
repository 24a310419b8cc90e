package handler

import (
	"context"

	"github.com/pattamap/server/internal/config"
	"github.com/pattamap/server/internal/data"
	"github.com/pattamap/server/internal/persist"
	"github.com/pattamap/server/internal/scripting"
	"go.uber.org/zap"
)

// EstablishmentStore is the establishment repository as the HTTP layer sees it.
type EstablishmentStore interface {
	List(ctx context.Context, zone string) ([]persist.EstablishmentRow, error)
	Get(ctx context.Context, id string) (*persist.EstablishmentRow, error)
	ApplyMove(ctx context.Context, req persist.MoveRequest) ([]persist.Placement, error)
}

// EditorStore resolves API keys to editors. A nil row means the key was rejected.
type EditorStore interface {
	Authenticate(ctx context.Context, name, secret string) (*persist.EditorRow, error)
}

type MoveLog interface {
	Recent(ctx context.Context, zone string, limit int) ([]persist.MoveLogEntry, error)
}

// PlacementRules is consulted before a move is written. See scripting.Engine.
type PlacementRules interface {
	CanPlace(ctx scripting.PlacementContext) (bool, string)
}

// Deps holds shared dependencies injected into all HTTP handlers.
type Deps struct {
	Config         *config.Config
	Log            *zap.Logger
	Zones          *data.ZoneTable
	Establishments EstablishmentStore
	Editors        EditorStore
	Moves          MoveLog
	Rules          PlacementRules // nil permits every placement
}
