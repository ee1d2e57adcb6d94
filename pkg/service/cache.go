package service

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rmax-ai/orbweaver/pkg/graph"
)

// DefaultCacheTTL is tuned near one display frame: readers inside the window
// share a snapshot instead of hammering the graph lock.
const DefaultCacheTTL = 50 * time.Millisecond

// PositionCache holds the last captured full node snapshot. Every physics
// tick invalidates it after the data locks are released, so staleness is
// bounded by one tick interval on top of the TTL.
type PositionCache struct {
	mu      sync.RWMutex
	clock   clockwork.Clock
	ttl     time.Duration
	enabled bool

	nodes      []graph.Node
	capturedAt time.Time
}

// NewPositionCache creates an enabled cache. A non-positive ttl falls back
// to DefaultCacheTTL; a nil clock uses wall time.
func NewPositionCache(ttl time.Duration, clock clockwork.Clock) *PositionCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PositionCache{clock: clock, ttl: ttl, enabled: true}
}

// Get returns a clone of the cached snapshot and its capture time when the
// cache is enabled and the entry is still inside its TTL window.
func (c *PositionCache) Get() ([]graph.Node, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.enabled || c.nodes == nil {
		return nil, time.Time{}, false
	}
	if c.clock.Since(c.capturedAt) >= c.ttl {
		return nil, time.Time{}, false
	}
	return cloneNodes(c.nodes), c.capturedAt, true
}

// Put stores a clone of nodes with a fresh capture timestamp and returns
// that timestamp.
func (c *PositionCache) Put(nodes []graph.Node) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nodes = cloneNodes(nodes)
	c.capturedAt = c.clock.Now()
	return c.capturedAt
}

// Invalidate drops the cached entry.
func (c *PositionCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes = nil
}

// SetEnabled toggles caching. Disabling also drops the current entry.
func (c *PositionCache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
	if !enabled {
		c.nodes = nil
	}
}

func cloneNodes(nodes []graph.Node) []graph.Node {
	out := make([]graph.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}
