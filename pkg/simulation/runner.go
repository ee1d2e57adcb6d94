// Package simulation is the headless soak runner: it drives the CPU solver
// over a synthetic graph and reports qualitative physics statistics, the
// tool used to sanity-check solver changes without a daemon or viewers.
package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/rmax-ai/orbweaver/pkg/graph"
	"github.com/rmax-ai/orbweaver/pkg/physics"
	"github.com/rmax-ai/orbweaver/pkg/retry"
)

// sampleEvery thins the per-tick samples kept in the result so long soaks
// stay reportable.
const sampleEvery = 10

// Run executes the scenario and evaluates the standard invariants.
func Run(ctx context.Context, s Scenario) Result {
	if s.Seed == 0 {
		s.Seed = time.Now().UnixNano()
	}
	if s.Nodes <= 0 {
		s.Nodes = 100
	}
	if s.Ticks <= 0 {
		s.Ticks = 300
	}
	zero := physics.SimulationParams{}
	if s.Params == zero {
		s.Params = physics.DefaultParams()
	}

	rng := rand.New(rand.NewSource(s.Seed))
	slog.Info("Running scenario", "name", s.Name, "nodes", s.Nodes, "edges", s.Edges, "ticks", s.Ticks, "seed", s.Seed)

	g := syntheticGraph(s.Nodes, s.Edges, rng)
	engine := physics.NewEngine(nil, retry.Policy{MaxAttempts: 1})
	nodeMap := make(map[uint32]graph.Node, len(g.Nodes))

	res := Result{
		ScenarioName: s.Name,
		Seed:         s.Seed,
	}

	prev := clonePositions(g.Nodes)
	start := time.Now()
	var totalLatency time.Duration

	for tick := 0; tick < s.Ticks; tick++ {
		if ctx.Err() != nil {
			break
		}

		tickStart := time.Now()
		if err := engine.Tick(ctx, g, nodeMap, s.Params); err != nil {
			slog.Error("Tick failed", "tick", tick, "error", err)
			break
		}
		latency := time.Since(tickStart)
		totalLatency += latency
		res.Ticks++

		if tick%sampleEvery == 0 || tick == s.Ticks-1 {
			res.Samples = append(res.Samples, TickStats{
				Tick:          tick,
				Displacement:  displacement(prev, g.Nodes),
				KineticEnergy: kineticEnergy(g.Nodes, s.Params),
				Latency:       latency,
			})
		}
		prev = clonePositions(g.Nodes)
	}

	res.Duration = time.Since(start)
	res.FinalEnergy = kineticEnergy(g.Nodes, s.Params)
	if res.Ticks > 0 {
		res.MeanTickMicros = float64(totalLatency.Microseconds()) / float64(res.Ticks)
	}

	evaluateInvariants(&res, g)
	return res
}

// syntheticGraph builds a random graph with Fibonacci-sphere placement,
// mirroring what a real metadata build produces.
func syntheticGraph(nodes, edges int, rng *rand.Rand) *graph.GraphData {
	g := graph.NewGraphData()
	for i := 0; i < nodes; i++ {
		key := fmt.Sprintf("node-%d", i)
		id := uint32(i + 1)
		g.Nodes = append(g.Nodes, graph.Node{
			ID:          id,
			MetadataKey: key,
			Label:       key,
			Mass:        uint8(1 + rng.Intn(255)),
			Flags:       graph.NodeFlagActive,
		})
		g.IDToKey[id] = key
	}

	seen := make(map[[2]uint32]bool)
	for len(g.Edges) < edges && len(seen) < nodes*(nodes-1)/2 {
		a := uint32(1 + rng.Intn(nodes))
		b := uint32(1 + rng.Intn(nodes))
		if a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		if seen[[2]uint32{a, b}] {
			continue
		}
		seen[[2]uint32{a, b}] = true
		g.Edges = append(g.Edges, graph.Edge{Source: a, Target: b, Weight: float32(1 + rng.Intn(5))})
	}

	graph.PlaceFibonacciSphere(g.Nodes, graph.DefaultInitialRadius, rng)
	return g
}

func clonePositions(nodes []graph.Node) []graph.Vec3 {
	out := make([]graph.Vec3, len(nodes))
	for i, n := range nodes {
		out[i] = n.Position
	}
	return out
}

// displacement is the summed distance every node moved since the previous
// tick.
func displacement(prev []graph.Vec3, nodes []graph.Node) float64 {
	var sum float64
	for i, n := range nodes {
		if i >= len(prev) {
			break
		}
		d := n.Position.Sub(prev[i])
		sum += math.Sqrt(float64(d.LengthSq()))
	}
	return sum
}

// kineticEnergy is 0.5 * m * v^2 summed over all nodes, using the solver's
// effective mass.
func kineticEnergy(nodes []graph.Node, p physics.SimulationParams) float64 {
	var sum float64
	for _, n := range nodes {
		m := float64(p.EffectiveMass(n.Mass))
		sum += 0.5 * m * float64(n.Velocity.LengthSq())
	}
	return sum
}

// evaluateInvariants runs the qualitative checks: every position stays
// finite, and a damped system does not diverge without bound.
func evaluateInvariants(res *Result, g *graph.GraphData) {
	finite := InvariantResult{Name: "positions_finite", Passed: true}
	for _, n := range g.Nodes {
		for _, v := range []float32{n.Position.X, n.Position.Y, n.Position.Z, n.Velocity.X, n.Velocity.Y, n.Velocity.Z} {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				finite.Passed = false
				finite.Details = fmt.Sprintf("node %d has non-finite state", n.ID)
			}
		}
	}
	res.Invariants = append(res.Invariants, finite)

	settling := InvariantResult{Name: "energy_settles", Passed: true}
	if len(res.Samples) >= 2 {
		first := res.Samples[0].KineticEnergy
		last := res.Samples[len(res.Samples)-1].KineticEnergy
		// Repulsion injects energy early; damping must keep the tail
		// from running away.
		if last > first*100 && last > 1 {
			settling.Passed = false
			settling.Details = fmt.Sprintf("energy grew from %.3f to %.3f", first, last)
		}
	}
	res.Invariants = append(res.Invariants, settling)

	res.Success = true
	for _, inv := range res.Invariants {
		if !inv.Passed {
			res.Success = false
		}
	}
}
