package physics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rmax-ai/orbweaver/pkg/graph"
	"github.com/rmax-ai/orbweaver/pkg/retry"
)

// Engine computes one physics tick, preferring the accelerator and falling
// back to the CPU solver when it keeps failing. The zero accelerator case
// runs CPU-only.
type Engine struct {
	mu     sync.Mutex
	accel  Accelerator
	policy retry.Policy

	// fallback runs the CPU solver; swappable in tests.
	fallback func(g *graph.GraphData, nodeMap map[uint32]graph.Node, p SimulationParams) error
}

// NewEngine creates an engine. accel may be nil for CPU-only operation.
func NewEngine(accel Accelerator, policy retry.Policy) *Engine {
	if policy.MaxAttempts == 0 {
		policy = retry.DefaultPolicy()
	}
	return &Engine{accel: accel, policy: policy, fallback: StepCPU}
}

// HasAccelerator reports whether an accelerator is attached.
func (e *Engine) HasAccelerator() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.accel != nil
}

// SetAccelerator swaps the device, used by the self-test reconstruction
// hook. A nil value detaches it.
func (e *Engine) SetAccelerator(a Accelerator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.accel = a
}

// Accelerator returns the attached device, or nil.
func (e *Engine) Accelerator() Accelerator {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.accel
}

// Tick advances the simulation one step, writing results into both g.Nodes
// and nodeMap. With an accelerator attached the device path is retried with
// doubling delays, then the CPU solver runs exactly once; if that also
// fails, the surfaced error is the device's last error.
func (e *Engine) Tick(ctx context.Context, g *graph.GraphData, nodeMap map[uint32]graph.Node, p SimulationParams) error {
	accel := e.Accelerator()
	if accel == nil {
		return e.fallback(g, nodeMap, p)
	}

	err := e.policy.RunWithFallback(ctx,
		func() error { return e.stepAccelerated(accel, g, nodeMap, p) },
		func() error {
			slog.Warn("Accelerator retries exhausted, running CPU fallback")
			return e.fallback(g, nodeMap, p)
		})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFallbackExhausted, err)
	}
	return nil
}

// stepAccelerated pushes state to the device, steps it, and reads results
// back. Any failing stage aborts the whole attempt.
func (e *Engine) stepAccelerated(accel Accelerator, g *graph.GraphData, nodeMap map[uint32]graph.Node, p SimulationParams) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := accel.UpdateGraphData(g); err != nil {
		return fmt.Errorf("%w: graph upload: %w", ErrComputationFailure, err)
	}
	if err := accel.UpdateParams(p); err != nil {
		return fmt.Errorf("%w: params upload: %w", ErrComputationFailure, err)
	}
	if err := accel.Step(); err != nil {
		return fmt.Errorf("%w: step: %w", ErrComputationFailure, err)
	}
	data, err := accel.NodeData()
	if err != nil {
		return fmt.Errorf("%w: node readback: %w", ErrComputationFailure, err)
	}

	index := NodeIndex(g.Nodes)
	for _, nd := range data {
		i, ok := index[nd.ID]
		if !ok {
			continue
		}
		g.Nodes[i].Position = nd.Position
		g.Nodes[i].Velocity = nd.Velocity
		if nodeMap != nil {
			nodeMap[nd.ID] = g.Nodes[i]
		}
	}
	return nil
}
