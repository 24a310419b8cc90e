package handler

import (
	"sync"
	"time"

	"github.com/pattamap/server/internal/config"
	"golang.org/x/time/rate"
)

// moveLimiter holds one token bucket per editor. A nil limiter allows everything.
type moveLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	editors map[string]*rate.Limiter
}

func newMoveLimiter(cfg config.RateLimitConfig) *moveLimiter {
	if !cfg.Enabled || cfg.MovesPerMinute <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &moveLimiter{
		limit:   rate.Every(time.Minute / time.Duration(cfg.MovesPerMinute)),
		burst:   burst,
		editors: make(map[string]*rate.Limiter),
	}
}

func (l *moveLimiter) Allow(editor string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	lim, ok := l.editors[editor]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.editors[editor] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
