package drag

import "github.com/pattamap/server/internal/grid"

// State is the drag lifecycle: idle → dragging → committing → idle.
type State uint8

const (
	StateIdle State = iota
	StateDragging
	StateCommitting
)

func (s State) String() string {
	switch s {
	case StateDragging:
		return "dragging"
	case StateCommitting:
		return "committing"
	default:
		return "idle"
	}
}

// Action is what a drop at the current drag-over cell would do. Always derived.
type Action uint8

const (
	ActionNone Action = iota
	ActionMove
	ActionSwap
	ActionBlocked
)

func (a Action) String() string {
	switch a {
	case ActionMove:
		return "move"
	case ActionSwap:
		return "swap"
	case ActionBlocked:
		return "blocked"
	default:
		return "none"
	}
}

// Session is the transient state of the single active drag.
type Session struct {
	State     State
	DraggedID string
	DragOver  *grid.Position
	Action    Action
	Pointer   grid.Point
	Modality  Modality
}

// Dragging mirrors the isDragging flag a renderer keys off.
func (s Session) Dragging() bool { return s.State == StateDragging }

func (s Session) clone() Session {
	if s.DragOver != nil {
		p := *s.DragOver
		s.DragOver = &p
	}
	return s
}

// Outcome reports how a Drop call ended.
type Outcome uint8

const (
	OutcomeIgnored   Outcome = iota // no active drag or guard failed; nothing changed
	OutcomeCancelled                // blocked target, own cell, or drag torn down mid-commit
	OutcomeCommitted
	OutcomeFailed
	OutcomeTimedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeCommitted:
		return "committed"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return "ignored"
	}
}
