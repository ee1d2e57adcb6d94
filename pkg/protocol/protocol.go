// Package protocol owns the binary frame layout streamed to viewers.
//
// A frame is a flat sequence of 32-byte little-endian records:
//
//	offset 0  u32     node id
//	offset 4  3xf32   position x, y, z
//	offset 16 3xf32   velocity x, y, z
//	offset 28 u8      mass
//	offset 29 u8      flags
//	offset 30 2 bytes reserved
//
// The layout is stable; decoders reject frames whose length is not a
// multiple of the record size.
package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/rmax-ai/orbweaver/pkg/graph"
)

// RecordSize is the encoded size of one node record in bytes.
const RecordSize = 32

// WireNode is the fixed-size projection of a node sent to viewers.
type WireNode struct {
	ID       uint32
	Position graph.Vec3
	Velocity graph.Vec3
	Mass     uint8
	Flags    uint8
}

// FromNode projects a graph node onto the wire shape.
func FromNode(n graph.Node) WireNode {
	return WireNode{
		ID:       n.ID,
		Position: n.Position,
		Velocity: n.Velocity,
		Mass:     n.Mass,
		Flags:    n.Flags,
	}
}

// Encode serializes the records into one frame buffer.
func Encode(nodes []WireNode) []byte {
	buf := make([]byte, len(nodes)*RecordSize)
	for i, n := range nodes {
		o := i * RecordSize
		binary.LittleEndian.PutUint32(buf[o:], n.ID)
		putFloat32(buf[o+4:], n.Position.X)
		putFloat32(buf[o+8:], n.Position.Y)
		putFloat32(buf[o+12:], n.Position.Z)
		putFloat32(buf[o+16:], n.Velocity.X)
		putFloat32(buf[o+20:], n.Velocity.Y)
		putFloat32(buf[o+24:], n.Velocity.Z)
		buf[o+28] = n.Mass
		buf[o+29] = n.Flags
	}
	return buf
}

// Decode parses a frame back into records.
func Decode(frame []byte) ([]WireNode, error) {
	if len(frame)%RecordSize != 0 {
		return nil, fmt.Errorf("frame length %d is not a multiple of %d", len(frame), RecordSize)
	}
	nodes := make([]WireNode, len(frame)/RecordSize)
	for i := range nodes {
		o := i * RecordSize
		nodes[i] = WireNode{
			ID: binary.LittleEndian.Uint32(frame[o:]),
			Position: graph.Vec3{
				X: getFloat32(frame[o+4:]),
				Y: getFloat32(frame[o+8:]),
				Z: getFloat32(frame[o+12:]),
			},
			Velocity: graph.Vec3{
				X: getFloat32(frame[o+16:]),
				Y: getFloat32(frame[o+20:]),
				Z: getFloat32(frame[o+24:]),
			},
			Mass:  frame[o+28],
			Flags: frame[o+29],
		}
	}
	return nodes, nil
}

func putFloat32(b []byte, f float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
}

func getFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
