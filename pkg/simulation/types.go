package simulation

import (
	"time"

	"github.com/rmax-ai/orbweaver/pkg/physics"
)

// Scenario describes one headless soak run: a synthetic graph and how many
// CPU ticks to push it through.
type Scenario struct {
	Name   string                   `json:"name"`
	Nodes  int                      `json:"nodes"`
	Edges  int                      `json:"edges"`
	Ticks  int                      `json:"ticks"`
	Seed   int64                    `json:"seed"`
	Params physics.SimulationParams `json:"params"`
}

// TickStats captures one sampled tick of the run.
type TickStats struct {
	Tick          int           `json:"tick"`
	Displacement  float64       `json:"displacement"`
	KineticEnergy float64       `json:"kinetic_energy"`
	Latency       time.Duration `json:"latency_ns"`
}

// InvariantResult is one qualitative check on the finished run.
type InvariantResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Details string `json:"details,omitempty"`
}

// Result captures the final state of the soak run for reporting.
type Result struct {
	ScenarioName   string            `json:"scenario_name"`
	Seed           int64             `json:"seed"`
	Ticks          int               `json:"ticks"`
	Duration       time.Duration     `json:"duration"`
	FinalEnergy    float64           `json:"final_energy"`
	MeanTickMicros float64           `json:"mean_tick_micros"`
	Samples        []TickStats       `json:"samples,omitempty"`
	Invariants     []InvariantResult `json:"invariants"`
	Success        bool              `json:"success"`
}
