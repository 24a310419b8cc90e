package grid

import "sync"

// RequestID identifies the commit request that owns a set of overlay entries.
type RequestID uint64

type overlayEntry struct {
	pos       Position
	req       RequestID
	confirmed bool
	prev      *overlayEntry // confirmed entry this pending one replaced
}

// restore reports the entry to fall back to when e is withdrawn.
func (e overlayEntry) restore() (overlayEntry, bool) {
	if e.prev == nil {
		return overlayEntry{}, false
	}
	return *e.prev, true
}

// Overlay holds tentative positions applied ahead of server confirmation.
// Entries belong to a request and never outlive its resolution: Rollback removes them,
// Confirm hands them over to the next authoritative refresh.
type Overlay struct {
	mu      sync.RWMutex
	entries map[string]overlayEntry
	nextReq RequestID
}

func NewOverlay() *Overlay {
	return &Overlay{entries: make(map[string]overlayEntry)}
}

// NextRequest allocates a request id for Apply.
func (o *Overlay) NextRequest() RequestID {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextReq++
	return o.nextReq
}

// Apply records pending positions for req. A newer request replaces any older entry
// for the same entity; a replaced confirmed entry comes back if req is rolled back.
func (o *Overlay) Apply(req RequestID, positions map[string]Position) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, pos := range positions {
		next := overlayEntry{pos: pos, req: req}
		if old, ok := o.entries[id]; ok {
			if old.confirmed {
				next.prev = &old
			} else {
				next.prev = old.prev
			}
		}
		o.entries[id] = next
	}
}

// Confirm marks req's entries as confirmed by the server.
func (o *Overlay) Confirm(req RequestID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, e := range o.entries {
		if e.req == req {
			e.confirmed = true
			e.prev = nil
			o.entries[id] = e
		}
	}
}

// Rollback removes every entry owned by req and reports how many were removed.
// A confirmed entry that req had replaced is reinstated.
func (o *Overlay) Rollback(req RequestID) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for id, e := range o.entries {
		if e.req == req {
			o.withdrawLocked(id, e)
			n++
		}
	}
	return n
}

func (o *Overlay) withdrawLocked(id string, e overlayEntry) {
	if prev, ok := e.restore(); ok {
		o.entries[id] = prev
		return
	}
	delete(o.entries, id)
}

// Get returns the overlay position for id, if any.
func (o *Overlay) Get(id string) (Position, bool) {
	if o == nil {
		return Position{}, false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.entries[id]
	return e.pos, ok
}

func (o *Overlay) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.entries)
}

// Pending reports whether id has an entry whose request is still in flight.
func (o *Overlay) Pending(id string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.entries[id]
	return ok && !e.confirmed
}

// supersede drops entries made obsolete by a fresh authoritative list. Pending
// entries that survive lose their fallback, which the list now accounts for.
func (o *Overlay) supersede(authoritative map[string]Position) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, e := range o.entries {
		pos, exists := authoritative[id]
		switch {
		case !exists, e.confirmed, pos == e.pos:
			delete(o.entries, id)
		case e.prev != nil:
			e.prev = nil
			o.entries[id] = e
		}
	}
}

// Discard removes pending entries for ids regardless of owning request, reinstating
// any confirmed entry they replaced. Used when a
// request is abandoned without resolving, so its late Confirm or Rollback becomes a no-op.
func (o *Overlay) Discard(ids ...string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, id := range ids {
		if e, ok := o.entries[id]; ok && !e.confirmed {
			o.withdrawLocked(id, e)
			n++
		}
	}
	return n
}
