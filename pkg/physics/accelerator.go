package physics

import (
	"errors"

	"github.com/rmax-ai/orbweaver/pkg/graph"
)

// Error kinds surfaced by the engine. Tick errors are logged at the loop
// boundary and never terminate the simulation loop.
var (
	// ErrAcceleratorUnavailable means no accelerator is attached or it
	// failed its startup self test.
	ErrAcceleratorUnavailable = errors.New("accelerator unavailable")

	// ErrComputationFailure marks a single failed accelerator stage.
	// Retryable.
	ErrComputationFailure = errors.New("computation failure")

	// ErrFallbackExhausted means the accelerator retries and the CPU
	// fallback both failed. Fatal for that tick only.
	ErrFallbackExhausted = errors.New("fallback exhausted")
)

// NodeData is the per-node result read back from an accelerator step.
type NodeData struct {
	ID       uint32
	Position graph.Vec3
	Velocity graph.Vec3
	Mass     uint8
	Flags    uint8
}

// Accelerator is the external computation capability used for the physics
// step. Implementations own a device-side copy of the graph; every
// operation can fail. Callers serialize access themselves.
type Accelerator interface {
	// UpdateGraphData pushes a full graph snapshot to the device.
	UpdateGraphData(g *graph.GraphData) error
	// UpdateParams pushes solver parameters to the device.
	UpdateParams(p SimulationParams) error
	// Step advances the device simulation by one tick.
	Step() error
	// NodeData reads back per-node position, velocity, mass and flags.
	NodeData() ([]NodeData, error)
	// ComputeForces returns the force accumulation for the device's
	// current state without integrating.
	ComputeForces() ([]graph.Vec3, error)
	// TestCompute runs a tiny fixed workload to probe device health.
	TestCompute() error
	// Iterations reports how many steps the device has executed.
	Iterations() uint64
}
