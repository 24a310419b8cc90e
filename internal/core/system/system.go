package system

import "time"

// Phase defines execution ordering within a single frame.
type Phase int

const (
	PhaseEvents Phase = iota // 0: deliver events raised since the last frame
	PhaseUpdate              // 1: state changes that depend on those events
	PhaseRender              // 2: draw
)

// System is one unit of per-frame work.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Func adapts a plain function to System.
type Func struct {
	At Phase
	Fn func(dt time.Duration)
}

func (f Func) Phase() Phase            { return f.At }
func (f Func) Update(dt time.Duration) { f.Fn(dt) }
