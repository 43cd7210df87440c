// Package cooldown enforces the minimum interval between admitted requests
// from the same user. State lives in process memory: it is session-scoped by
// contract and does not need to survive a restart.
package cooldown

import (
	"sync"
	"time"
)

// Guard tracks the last admitted request per user.
type Guard struct {
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

// NewGuard builds a guard with the given cooldown window. A non-positive
// window disables the cooldown (every check allows).
func NewGuard(window time.Duration) *Guard {
	return &Guard{
		window: window,
		last:   make(map[string]time.Time),
	}
}

// CheckAndReserve reports whether the user may proceed at `now`. On allow the
// slot is reserved immediately, before any expensive work runs, so two rapid
// calls from the same user cannot both pass. On deny it returns the remaining
// wait rounded up to whole seconds.
func (g *Guard) CheckAndReserve(userID string, now time.Time) (time.Duration, bool) {
	if g.window <= 0 {
		return 0, true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if last, ok := g.last[userID]; ok {
		elapsed := now.Sub(last)
		if elapsed < g.window {
			return ceilSeconds(g.window - elapsed), false
		}
	}
	g.last[userID] = now
	return 0, true
}

func ceilSeconds(d time.Duration) time.Duration {
	secs := d / time.Second
	if d%time.Second > 0 {
		secs++
	}
	return secs * time.Second
}
