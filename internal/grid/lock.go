package grid

import (
	"sync"
	"time"
)

// Lock is the post-commit cooldown gate. A new drag may not start while now < until.
type Lock struct {
	mu    sync.Mutex
	until time.Time
}

// LockUntil moves the window end to t. An earlier t never shortens an open window.
func (l *Lock) LockUntil(t time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t.After(l.until) {
		l.until = t
	}
}

func (l *Lock) Locked(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return now.Before(l.until)
}

func (l *Lock) Until() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.until
}
