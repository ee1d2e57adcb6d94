package service

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rmax-ai/orbweaver/pkg/graph"
)

func sampleNodes() []graph.Node {
	return []graph.Node{
		{ID: 1, MetadataKey: "alpha", Position: graph.Vec3{X: 1}, Mass: 100, Flags: graph.NodeFlagActive},
		{ID: 2, MetadataKey: "beta", Position: graph.Vec3{Y: 2}, Mass: 50, Flags: graph.NodeFlagActive},
	}
}

func TestPositionCache_HitInsideTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewPositionCache(50*time.Millisecond, clock)

	// 1. Populate, then read twice inside the TTL
	c.Put(sampleNodes())
	first, at1, ok := c.Get()
	if !ok {
		t.Fatal("Expected a cache hit right after Put")
	}
	clock.Advance(20 * time.Millisecond)
	second, at2, ok := c.Get()
	if !ok {
		t.Fatal("Expected a cache hit inside the TTL")
	}

	// 2. Both reads see the same capture
	if !at1.Equal(at2) {
		t.Errorf("Capture timestamps differ: %v vs %v", at1, at2)
	}
	if len(first) != len(second) {
		t.Fatalf("Snapshot lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Position != second[i].Position {
			t.Errorf("Node %d differs between reads", i)
		}
	}
}

func TestPositionCache_MissAfterTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewPositionCache(50*time.Millisecond, clock)

	c.Put(sampleNodes())
	clock.Advance(50 * time.Millisecond)
	if _, _, ok := c.Get(); ok {
		t.Error("Expected a miss once the entry aged out")
	}
}

func TestPositionCache_InvalidateDropsEntry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewPositionCache(50*time.Millisecond, clock)

	c.Put(sampleNodes())
	c.Invalidate()
	if _, _, ok := c.Get(); ok {
		t.Error("Expected a miss after Invalidate")
	}
}

func TestPositionCache_DisabledNeverHits(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewPositionCache(50*time.Millisecond, clock)

	c.Put(sampleNodes())
	c.SetEnabled(false)
	if _, _, ok := c.Get(); ok {
		t.Error("Expected a miss while caching is disabled")
	}

	// Re-enabling does not resurrect the dropped entry
	c.SetEnabled(true)
	if _, _, ok := c.Get(); ok {
		t.Error("Expected a miss after re-enable without a new Put")
	}
}

func TestPositionCache_ClonesAreIndependent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewPositionCache(50*time.Millisecond, clock)

	nodes := sampleNodes()
	c.Put(nodes)

	// Mutating the caller's slice must not leak into the cache
	nodes[0].Position.X = 999
	got, _, ok := c.Get()
	if !ok {
		t.Fatal("Expected a cache hit")
	}
	if got[0].Position.X == 999 {
		t.Error("Cache shares memory with the caller's slice")
	}

	// Mutating a returned snapshot must not affect later reads
	got[1].Position.Y = -1
	again, _, _ := c.Get()
	if again[1].Position.Y == -1 {
		t.Error("Cache shares memory with a returned snapshot")
	}
}
