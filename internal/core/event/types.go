package event

import (
	"time"

	"github.com/pattamap/server/internal/grid"
)

// Events raised by the map editor's background work and consumed on the frame loop.

type ToastLevel uint8

const (
	ToastSuccess ToastLevel = iota
	ToastError
)

// Toast is a transient status-line message.
type Toast struct {
	Level ToastLevel
	Text  string
}

// Pulse asks the frame loop to play a feedback pattern (on, off, on, ...).
type Pulse struct {
	Pattern []time.Duration
}

// DropSettled is raised when a Drop call returns. Outcome is drag.Outcome's string form.
type DropSettled struct {
	EntityID string
	Outcome  string
}

// EntitiesLoaded carries a fresh authoritative list, or the error that prevented it.
type EntitiesLoaded struct {
	Zone     string
	Entities []grid.Entity
	Err      error
}

// IdentityResolved reports who the editor token belongs to.
type IdentityResolved struct {
	Name    string
	CanEdit bool
	Err     error
}
