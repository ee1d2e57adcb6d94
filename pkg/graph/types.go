package graph

import "github.com/rmax-ai/orbweaver/pkg/metadata"

// Vec3 is a position or velocity in layout space.
// Components are float32 to match the wire format and accelerator buffers.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// LengthSq returns the squared magnitude. Cheaper than Length when only
// comparing against thresholds.
func (v Vec3) LengthSq() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// NodeFlagActive marks a node as live in the current layout. Further bits are
// reserved for the viewer.
const NodeFlagActive uint8 = 1

// Node is a vertex of the visualization graph. Position and velocity are
// mutated in place by physics ticks and accepted client updates; identity
// fields are fixed at build time.
type Node struct {
	ID          uint32            `json:"id"`
	MetadataKey string            `json:"metadataKey"`
	Label       string            `json:"label"`
	Position    Vec3              `json:"position"`
	Velocity    Vec3              `json:"velocity"`
	Mass        uint8             `json:"mass"`
	Flags       uint8             `json:"flags"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	c := n
	if n.Metadata != nil {
		c.Metadata = make(map[string]string, len(n.Metadata))
		for k, v := range n.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// Edge is an undirected weighted connection. Source is always the lower id;
// AddEdgeWeight enforces the canonical order.
type Edge struct {
	Source uint32  `json:"source"`
	Target uint32  `json:"target"`
	Weight float32 `json:"weight"`
}

// GraphData is the complete graph snapshot the simulation operates on. It is
// replaced wholesale by a rebuild, never patched incrementally.
type GraphData struct {
	Nodes    []Node                     `json:"nodes"`
	Edges    []Edge                     `json:"edges"`
	Metadata map[string]metadata.Record `json:"metadata,omitempty"`
	// IDToKey maps numeric node ids back to metadata keys.
	IDToKey map[uint32]string `json:"-"`
}

// NewGraphData creates an empty graph.
func NewGraphData() *GraphData {
	return &GraphData{
		Nodes:    make([]Node, 0),
		Edges:    make([]Edge, 0),
		Metadata: make(map[string]metadata.Record),
		IDToKey:  make(map[uint32]string),
	}
}

// Clone returns a deep copy safe to hand to readers while the original keeps
// being mutated by the simulation loop.
func (g *GraphData) Clone() *GraphData {
	c := &GraphData{
		Nodes:    make([]Node, len(g.Nodes)),
		Edges:    make([]Edge, len(g.Edges)),
		Metadata: make(map[string]metadata.Record, len(g.Metadata)),
		IDToKey:  make(map[uint32]string, len(g.IDToKey)),
	}
	for i, n := range g.Nodes {
		c.Nodes[i] = n.Clone()
	}
	copy(c.Edges, g.Edges)
	for k, v := range g.Metadata {
		c.Metadata[k] = v.Clone()
	}
	for id, key := range g.IDToKey {
		c.IDToKey[id] = key
	}
	return c
}

// NodeByID returns a pointer into the node slice, or nil. The pointer is only
// valid while the caller holds the graph lock.
func (g *GraphData) NodeByID(id uint32) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}
