package grid

import "sync"

// EntityAt returns the entity whose effective position is pos.
// The effective position is the overlay entry when one exists, else the authoritative one.
func EntityAt(pos Position, entities []Entity, overlay *Overlay) (Entity, bool) {
	for _, e := range entities {
		if effective(e, overlay) == pos {
			return e, true
		}
	}
	return Entity{}, false
}

func effective(e Entity, overlay *Overlay) Position {
	if p, ok := overlay.Get(e.ID); ok {
		return p
	}
	return e.Pos
}

// Board is the working set of one zone: the authoritative entity list plus the
// optimistic overlay drawn on top of it.
type Board struct {
	mu       sync.RWMutex
	entities []Entity
	overlay  *Overlay
}

func NewBoard(entities []Entity) *Board {
	b := &Board{overlay: NewOverlay()}
	b.entities = append([]Entity(nil), entities...)
	return b
}

func (b *Board) Overlay() *Overlay { return b.overlay }

// Replace installs a fresh authoritative list and drops overlay entries it supersedes.
func (b *Board) Replace(entities []Entity) {
	auth := make(map[string]Position, len(entities))
	for _, e := range entities {
		auth[e.ID] = e.Pos
	}

	b.mu.Lock()
	b.entities = append(b.entities[:0:0], entities...)
	b.mu.Unlock()

	b.overlay.supersede(auth)
}

// Entity returns the authoritative record for id.
func (b *Board) Entity(id string) (Entity, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, e := range b.entities {
		if e.ID == id {
			return e, true
		}
	}
	return Entity{}, false
}

// Effective returns id's effective position.
func (b *Board) Effective(id string) (Position, bool) {
	e, ok := b.Entity(id)
	if !ok {
		return Position{}, false
	}
	return effective(e, b.overlay), true
}

func (b *Board) EntityAt(pos Position) (Entity, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return EntityAt(pos, b.entities, b.overlay)
}

// Entities returns a copy of the working set with effective positions filled in, for rendering.
func (b *Board) Entities() []Entity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Entity, len(b.entities))
	for i, e := range b.entities {
		e.Pos = effective(e, b.overlay)
		out[i] = e
	}
	return out
}

func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entities)
}
