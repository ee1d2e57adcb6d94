package simulation

import (
	"context"
	"testing"
)

func TestRun_DeterministicWithSeed(t *testing.T) {
	s := Scenario{Name: "soak", Nodes: 20, Edges: 30, Ticks: 50, Seed: 42}

	a := Run(context.Background(), s)
	b := Run(context.Background(), s)

	if a.Ticks != 50 || b.Ticks != 50 {
		t.Fatalf("Expected 50 ticks each, got %d and %d", a.Ticks, b.Ticks)
	}
	if a.FinalEnergy != b.FinalEnergy {
		t.Errorf("Same seed should give identical physics: %v vs %v", a.FinalEnergy, b.FinalEnergy)
	}
}

func TestRun_InvariantsHoldOnDefaults(t *testing.T) {
	res := Run(context.Background(), Scenario{Name: "defaults", Nodes: 30, Edges: 40, Ticks: 100, Seed: 7})

	if !res.Success {
		t.Fatalf("Default scenario should pass all invariants: %+v", res.Invariants)
	}
	if len(res.Samples) == 0 {
		t.Error("Expected sampled tick stats")
	}
	if res.MeanTickMicros <= 0 {
		t.Error("Expected a positive mean tick latency")
	}
}

func TestRun_CancelledContextStopsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := Run(ctx, Scenario{Name: "cancelled", Nodes: 10, Ticks: 1000, Seed: 1})
	if res.Ticks != 0 {
		t.Errorf("Expected no ticks on a cancelled context, got %d", res.Ticks)
	}
}
