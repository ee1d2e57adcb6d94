package service

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultUpdateInterval caps externally submitted position updates at
// roughly sixty per second.
const DefaultUpdateInterval = 16 * time.Millisecond

// UpdateGate is the rate limiter for externally submitted node updates.
// One shared timestamp records the last acceptance; submissions arriving
// inside the minimum interval are dropped silently, never queued.
type UpdateGate struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	interval time.Duration
	last     time.Time
}

// NewUpdateGate creates a gate. A non-positive interval falls back to
// DefaultUpdateInterval; a nil clock uses wall time.
func NewUpdateGate(interval time.Duration, clock clockwork.Clock) *UpdateGate {
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &UpdateGate{clock: clock, interval: interval}
}

// Allow reports whether an update arriving now should be applied.
// Acceptance advances the shared timestamp.
func (g *UpdateGate) Allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if !g.last.IsZero() && now.Sub(g.last) <= g.interval {
		return false
	}
	g.last = now
	return true
}
