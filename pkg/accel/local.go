package accel

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/rmax-ai/orbweaver/pkg/graph"
	"github.com/rmax-ai/orbweaver/pkg/physics"
)

// LocalDevice implements the accelerator capability in process: it keeps a
// device-side copy of the graph and partitions the repulsion pair loop
// across a worker pool. It stands in for a GPU compute backend and lets the
// daemon exercise the full accelerator code path on any machine.
type LocalDevice struct {
	mu      sync.Mutex
	nodes   []graph.Node
	edges   []graph.Edge
	index   map[uint32]int
	params  physics.SimulationParams
	workers int

	iterations atomic.Uint64
}

// NewLocalDevice creates a device from an initial graph snapshot. workers
// <= 0 uses one worker per CPU.
func NewLocalDevice(g *graph.GraphData, p physics.SimulationParams, workers int) (*LocalDevice, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	d := &LocalDevice{workers: workers, params: p}
	if g != nil {
		if err := d.UpdateGraphData(g); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// UpdateGraphData replaces the device-side graph copy.
func (d *LocalDevice) UpdateGraphData(g *graph.GraphData) error {
	if g == nil {
		return errors.New("nil graph")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nodes = make([]graph.Node, len(g.Nodes))
	copy(d.nodes, g.Nodes)
	d.edges = make([]graph.Edge, len(g.Edges))
	copy(d.edges, g.Edges)
	d.index = physics.NodeIndex(d.nodes)
	return nil
}

// UpdateParams replaces the device-side solver parameters.
func (d *LocalDevice) UpdateParams(p physics.SimulationParams) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params = p
	return nil
}

// Step advances the device simulation one tick.
func (d *LocalDevice) Step() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.nodes) == 0 {
		d.iterations.Add(1)
		return nil
	}

	forces, err := d.computeForcesLocked()
	if err != nil {
		return err
	}
	physics.Integrate(d.nodes, forces, d.params)
	d.iterations.Add(1)
	return nil
}

// computeForcesLocked fans the repulsion rows out over the worker pool and
// reduces the per-worker accumulations. Callers hold d.mu.
func (d *LocalDevice) computeForcesLocked() ([]graph.Vec3, error) {
	n := len(d.nodes)
	workers := d.workers
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	partial := make([][]graph.Vec3, workers)
	var eg errgroup.Group
	chunk := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		w := w
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		partial[w] = make([]graph.Vec3, n)
		if start >= end {
			continue
		}
		eg.Go(func() error {
			physics.AccumulateRepulsion(d.nodes, d.params, partial[w], start, end)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("repulsion workers failed: %w", err)
	}

	forces := make([]graph.Vec3, n)
	for _, pf := range partial {
		for i := range forces {
			forces[i] = forces[i].Add(pf[i])
		}
	}
	physics.AccumulateAttraction(d.nodes, d.edges, d.index, d.params, forces)
	return forces, nil
}

// NodeData reads back the device state.
func (d *LocalDevice) NodeData() ([]physics.NodeData, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]physics.NodeData, len(d.nodes))
	for i, n := range d.nodes {
		out[i] = physics.NodeData{
			ID:       n.ID,
			Position: n.Position,
			Velocity: n.Velocity,
			Mass:     n.Mass,
			Flags:    n.Flags,
		}
	}
	return out, nil
}

// ComputeForces returns the force accumulation for the current device state
// without integrating it.
func (d *LocalDevice) ComputeForces() ([]graph.Vec3, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.nodes) == 0 {
		return nil, nil
	}
	return d.computeForcesLocked()
}

// TestCompute runs a tiny fixed workload and verifies the results stay
// finite. Used by the startup self test.
func (d *LocalDevice) TestCompute() error {
	probe := make([]graph.Node, 8)
	for i := range probe {
		probe[i] = graph.Node{
			ID:       uint32(i + 1),
			Mass:     128,
			Position: graph.Vec3{X: float32(i), Y: float32(i % 3), Z: float32(i % 2)},
		}
	}
	edges := []graph.Edge{{Source: 1, Target: 2, Weight: 1}, {Source: 3, Target: 4, Weight: 2}}

	scratch := &LocalDevice{workers: d.workers, params: physics.DefaultParams()}
	scratch.nodes = probe
	scratch.edges = edges
	scratch.index = physics.NodeIndex(probe)

	if err := scratch.Step(); err != nil {
		return fmt.Errorf("probe step failed: %w", err)
	}
	data, err := scratch.NodeData()
	if err != nil {
		return err
	}
	for _, nd := range data {
		for _, v := range []float32{nd.Position.X, nd.Position.Y, nd.Position.Z, nd.Velocity.X, nd.Velocity.Y, nd.Velocity.Z} {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				return fmt.Errorf("probe produced non-finite value %v for node %d", v, nd.ID)
			}
		}
	}
	return nil
}

// Iterations reports how many steps the device has executed.
func (d *LocalDevice) Iterations() uint64 {
	return d.iterations.Load()
}
