package physics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rmax-ai/orbweaver/pkg/graph"
	"github.com/rmax-ai/orbweaver/pkg/retry"
)

// fakeAccel counts calls and fails on demand.
type fakeAccel struct {
	uploads    int
	steps      int
	failStep   error
	failUpload error
	result     []NodeData
	iterations uint64
}

func (f *fakeAccel) UpdateGraphData(g *graph.GraphData) error {
	f.uploads++
	return f.failUpload
}
func (f *fakeAccel) UpdateParams(p SimulationParams) error { return nil }
func (f *fakeAccel) Step() error {
	f.steps++
	if f.failStep != nil {
		return f.failStep
	}
	f.iterations++
	return nil
}
func (f *fakeAccel) NodeData() ([]NodeData, error)        { return f.result, nil }
func (f *fakeAccel) ComputeForces() ([]graph.Vec3, error) { return nil, nil }
func (f *fakeAccel) TestCompute() error                   { return nil }
func (f *fakeAccel) Iterations() uint64                   { return f.iterations }

func instantPolicy(slept *[]time.Duration) retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		Base:        500 * time.Millisecond,
		Multiplier:  2.0,
		Sleep: func(ctx context.Context, d time.Duration) error {
			*slept = append(*slept, d)
			return nil
		},
	}
}

func twoNodeGraph() (*graph.GraphData, map[uint32]graph.Node) {
	g := graph.NewGraphData()
	g.Nodes = []graph.Node{
		{ID: 1, Position: graph.Vec3{X: 0}, Mass: 200},
		{ID: 2, Position: graph.Vec3{X: 1}, Mass: 200},
	}
	return g, map[uint32]graph.Node{}
}

func TestEngine_AcceleratorWriteback(t *testing.T) {
	// 1. Device returns fixed positions
	fake := &fakeAccel{result: []NodeData{
		{ID: 1, Position: graph.Vec3{X: -5}, Velocity: graph.Vec3{X: -1}},
		{ID: 2, Position: graph.Vec3{X: 5}, Velocity: graph.Vec3{X: 1}},
	}}
	var slept []time.Duration
	e := NewEngine(fake, instantPolicy(&slept))
	g, nodeMap := twoNodeGraph()

	// 2. Tick succeeds on the first attempt
	if err := e.Tick(context.Background(), g, nodeMap, DefaultParams()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if fake.steps != 1 {
		t.Errorf("Expected 1 device step, got %d", fake.steps)
	}
	if len(slept) != 0 {
		t.Errorf("Expected no retry sleeps, got %v", slept)
	}

	// 3. Results land in both the slice and the map
	if g.Nodes[0].Position.X != -5 || g.Nodes[1].Position.X != 5 {
		t.Errorf("Slice not updated: %+v", g.Nodes)
	}
	if nodeMap[1].Position.X != -5 || nodeMap[2].Velocity.X != 1 {
		t.Errorf("Node map not synchronized: %+v", nodeMap)
	}
}

func TestEngine_RetryThenFallback(t *testing.T) {
	// 1. Device fails every attempt
	stepErr := errors.New("device lost")
	fake := &fakeAccel{failStep: stepErr}
	var slept []time.Duration
	e := NewEngine(fake, instantPolicy(&slept))
	g, nodeMap := twoNodeGraph()

	// 2. Tick still succeeds via the CPU fallback
	if err := e.Tick(context.Background(), g, nodeMap, DefaultParams()); err != nil {
		t.Fatalf("Expected CPU fallback to rescue the tick, got %v", err)
	}

	// 3. Exactly max attempts against the device, delays doubling
	if fake.steps != 3 {
		t.Errorf("Expected 3 device attempts, got %d", fake.steps)
	}
	want := []time.Duration{500 * time.Millisecond, time.Second}
	if len(slept) != len(want) {
		t.Fatalf("Expected %d sleeps, got %v", len(want), slept)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("Sleep %d: expected %v, got %v", i, want[i], slept[i])
		}
	}

	// 4. CPU fallback actually moved the nodes
	if g.Nodes[0].Position.X == 0 && g.Nodes[1].Position.X == 1 {
		t.Error("Fallback did not run the CPU solver")
	}
}

func TestEngine_SurfacesDeviceErrorWhenBothFail(t *testing.T) {
	stepErr := errors.New("device lost")
	cpuErr := errors.New("solver corrupt")
	fake := &fakeAccel{failStep: stepErr}
	var slept []time.Duration
	e := NewEngine(fake, instantPolicy(&slept))
	e.fallback = func(g *graph.GraphData, nodeMap map[uint32]graph.Node, p SimulationParams) error {
		return cpuErr
	}

	g, nodeMap := twoNodeGraph()
	err := e.Tick(context.Background(), g, nodeMap, DefaultParams())
	if err == nil {
		t.Fatal("Expected tick error when both paths fail")
	}
	if !errors.Is(err, ErrFallbackExhausted) {
		t.Errorf("Expected ErrFallbackExhausted kind, got %v", err)
	}
	if !errors.Is(err, stepErr) {
		t.Errorf("Expected the device error surfaced, got %v", err)
	}
	if !errors.Is(err, ErrComputationFailure) {
		t.Errorf("Expected the computation failure kind preserved, got %v", err)
	}
	if errors.Is(err, cpuErr) {
		t.Error("CPU error must be logged only, never surfaced")
	}
}

func TestEngine_CPUOnlyWithoutAccelerator(t *testing.T) {
	e := NewEngine(nil, retry.DefaultPolicy())
	if e.HasAccelerator() {
		t.Error("Expected no accelerator")
	}
	g, nodeMap := twoNodeGraph()
	if err := e.Tick(context.Background(), g, nodeMap, DefaultParams()); err != nil {
		t.Fatalf("CPU-only tick failed: %v", err)
	}
	if len(nodeMap) != 2 {
		t.Errorf("Expected node map populated, got %d entries", len(nodeMap))
	}
}

func TestEngine_SetAccelerator(t *testing.T) {
	e := NewEngine(nil, retry.DefaultPolicy())
	fake := &fakeAccel{}
	e.SetAccelerator(fake)
	if !e.HasAccelerator() {
		t.Error("Expected accelerator after SetAccelerator")
	}
	e.SetAccelerator(nil)
	if e.HasAccelerator() {
		t.Error("Expected accelerator detached")
	}
}
