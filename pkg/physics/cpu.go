package physics

import "github.com/rmax-ai/orbweaver/pkg/graph"

// StepCPU runs the deterministic in-process solver: O(N²) repulsion, O(E)
// attraction, one Euler pass per iteration. Updated nodes are mirrored into
// nodeMap so the slice and the id-indexed view stay synchronized.
func StepCPU(g *graph.GraphData, nodeMap map[uint32]graph.Node, p SimulationParams) error {
	if len(g.Nodes) == 0 {
		return nil
	}

	iterations := p.Iterations
	if iterations < 1 {
		iterations = 1
	}

	index := NodeIndex(g.Nodes)
	forces := make([]graph.Vec3, len(g.Nodes))

	for iter := 0; iter < iterations; iter++ {
		for i := range forces {
			forces[i] = graph.Vec3{}
		}
		AccumulateForces(g.Nodes, g.Edges, index, p, forces)
		Integrate(g.Nodes, forces, p)
	}

	if nodeMap != nil {
		for i := range g.Nodes {
			nodeMap[g.Nodes[i].ID] = g.Nodes[i]
		}
	}
	return nil
}
