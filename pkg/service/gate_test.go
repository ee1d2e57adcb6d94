package service

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestUpdateGate_FirstUpdateAccepted(t *testing.T) {
	g := NewUpdateGate(16*time.Millisecond, clockwork.NewFakeClock())
	if !g.Allow() {
		t.Error("Expected the first update to be accepted")
	}
}

func TestUpdateGate_FasterThanIntervalRejected(t *testing.T) {
	clock := clockwork.NewFakeClock()
	g := NewUpdateGate(16*time.Millisecond, clock)

	// 1. Accept one update, then hammer inside the interval
	if !g.Allow() {
		t.Fatal("First update should be accepted")
	}
	for i := 0; i < 5; i++ {
		clock.Advance(2 * time.Millisecond)
		if g.Allow() {
			t.Fatalf("Update %d inside the interval should be rejected", i)
		}
	}

	// 2. Rejections must not advance the stamp: 17ms after the single
	// acceptance the gate opens again
	clock.Advance(7 * time.Millisecond)
	if !g.Allow() {
		t.Error("Expected acceptance once the interval elapsed")
	}
}

func TestUpdateGate_IntervalSpacedAccepted(t *testing.T) {
	clock := clockwork.NewFakeClock()
	g := NewUpdateGate(16*time.Millisecond, clock)

	accepted := 0
	for i := 0; i < 4; i++ {
		if g.Allow() {
			accepted++
		}
		clock.Advance(17 * time.Millisecond)
	}
	if accepted != 4 {
		t.Errorf("Expected all interval-spaced updates accepted, got %d of 4", accepted)
	}
}
