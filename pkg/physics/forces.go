package physics

import (
	"math"

	"github.com/rmax-ai/orbweaver/pkg/graph"
)

// Epsilon is the squared-distance floor below which a node pair is treated
// as coincident and skipped, keeping the math free of divisions by zero.
const Epsilon float32 = 0.0001

// NodeIndex maps node ids to their slice positions. Built once per tick and
// shared by attraction lookup and accelerator write-back.
func NodeIndex(nodes []graph.Node) map[uint32]int {
	index := make(map[uint32]int, len(nodes))
	for i := range nodes {
		index[nodes[i].ID] = i
	}
	return index
}

// AccumulateForces adds the full repulsion and attraction contributions for
// one tick into forces. Both the CPU path and the accelerator run exactly
// this math; they differ only in where the pair loop executes.
func AccumulateForces(nodes []graph.Node, edges []graph.Edge, index map[uint32]int, p SimulationParams, forces []graph.Vec3) {
	AccumulateRepulsion(nodes, p, forces, 0, len(nodes))
	AccumulateAttraction(nodes, edges, index, p, forces)
}

// AccumulateRepulsion adds pairwise repulsion for rows [start, end) against
// all higher-indexed nodes. Devices partition the row range across workers;
// each worker must use its own forces slice.
func AccumulateRepulsion(nodes []graph.Node, p SimulationParams, forces []graph.Vec3, start, end int) {
	maxDistSq := p.MaxRepulsionDistance * p.MaxRepulsionDistance
	for i := start; i < end; i++ {
		for j := i + 1; j < len(nodes); j++ {
			delta := nodes[i].Position.Sub(nodes[j].Position)
			distSq := delta.LengthSq()
			if distSq < Epsilon {
				continue
			}
			if p.MaxRepulsionDistance > 0 && distSq > maxDistSq {
				continue
			}

			mi := p.EffectiveMass(nodes[i].Mass)
			mj := p.EffectiveMass(nodes[j].Mass)
			magnitude := p.RepulsionStrength * mi * mj / distSq

			dist := float32(math.Sqrt(float64(distSq)))
			push := delta.Scale(magnitude / dist)
			forces[i] = forces[i].Add(push)
			forces[j] = forces[j].Sub(push)
		}
	}
}

// AccumulateAttraction adds the spring pull for every edge whose endpoints
// resolve to live nodes. The spring has no rest length: force grows linearly
// with distance.
func AccumulateAttraction(nodes []graph.Node, edges []graph.Edge, index map[uint32]int, p SimulationParams, forces []graph.Vec3) {
	for _, e := range edges {
		si, ok := index[e.Source]
		if !ok {
			continue
		}
		ti, ok := index[e.Target]
		if !ok {
			continue
		}

		delta := nodes[ti].Position.Sub(nodes[si].Position)
		distSq := delta.LengthSq()
		if distSq < Epsilon {
			continue
		}
		dist := float32(math.Sqrt(float64(distSq)))

		magnitude := p.SpringStrength * e.Weight * dist
		pull := delta.Scale(magnitude / dist)
		forces[si] = forces[si].Add(pull)
		forces[ti] = forces[ti].Sub(pull)
	}
}

// Integrate advances positions with a single semi-implicit Euler pass:
// v' = v*damping + F*dt, p' = p + v'*dt. With bounds enabled, positions are
// clamped to the viewport cube and the contact axis velocity is reflected
// with boundary damping.
func Integrate(nodes []graph.Node, forces []graph.Vec3, p SimulationParams) {
	for i := range nodes {
		v := nodes[i].Velocity.Scale(p.Damping).Add(forces[i].Scale(p.TimeStep))
		pos := nodes[i].Position.Add(v.Scale(p.TimeStep))

		if p.BoundsEnabled && p.ViewportBounds > 0 {
			pos.X, v.X = clampAxis(pos.X, v.X, p.ViewportBounds, p.BoundaryDamping)
			pos.Y, v.Y = clampAxis(pos.Y, v.Y, p.ViewportBounds, p.BoundaryDamping)
			pos.Z, v.Z = clampAxis(pos.Z, v.Z, p.ViewportBounds, p.BoundaryDamping)
		}

		nodes[i].Velocity = v
		nodes[i].Position = pos
	}
}

func clampAxis(pos, vel, bound, damping float32) (float32, float32) {
	if pos > bound {
		return bound, -vel * damping
	}
	if pos < -bound {
		return -bound, -vel * damping
	}
	return pos, vel
}
