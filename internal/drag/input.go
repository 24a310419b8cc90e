package drag

import "github.com/pattamap/server/internal/grid"

// Modality is the input source driving a drag. Only one may be active at a time.
type Modality uint8

const (
	ModalityNone Modality = iota
	ModalityPointer
	ModalityTouch
)

func (m Modality) String() string {
	switch m {
	case ModalityPointer:
		return "pointer"
	case ModalityTouch:
		return "touch"
	default:
		return "none"
	}
}

// Input is an event from the host UI. The variants are Pointer and Touch;
// Point resolves either one to a single canonical coordinate.
type Input interface {
	modality() Modality
	point() (grid.Point, bool)
}

// Pointer is a mouse or pen event.
type Pointer struct {
	X, Y float64
}

func (Pointer) modality() Modality { return ModalityPointer }

func (p Pointer) point() (grid.Point, bool) { return grid.Point{X: p.X, Y: p.Y}, true }

// Touch is a touch event. A touch-end event carries no active touches, only the
// touches that changed.
type Touch struct {
	Touches        []grid.Point
	ChangedTouches []grid.Point
}

func (Touch) modality() Modality { return ModalityTouch }

func (t Touch) point() (grid.Point, bool) {
	if len(t.Touches) > 0 {
		return t.Touches[0], true
	}
	if len(t.ChangedTouches) > 0 {
		return t.ChangedTouches[0], true
	}
	return grid.Point{}, false
}

// PointOf extracts the coordinate carried by in, if any.
func PointOf(in Input) (grid.Point, bool) {
	if in == nil {
		return grid.Point{}, false
	}
	return in.point()
}

// ModalityOf reports which input source produced in.
func ModalityOf(in Input) Modality {
	if in == nil {
		return ModalityNone
	}
	return in.modality()
}
