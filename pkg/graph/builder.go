package graph

import (
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rmax-ai/orbweaver/pkg/metadata"
)

// ErrRebuildInProgress is returned when a build is requested while another
// one is still running. Callers should retry later rather than queue.
var ErrRebuildInProgress = errors.New("graph rebuild already in progress")

const (
	// DefaultInitialRadius is the sphere radius for initial node placement.
	DefaultInitialRadius float32 = 3.0

	markdownSuffix = ".md"
)

// Builder transforms a metadata record set into a GraphData. At most one
// build may run at a time; the guard rejects concurrent calls instead of
// queueing them.
type Builder struct {
	building atomic.Bool
	radius   float32
	rng      *rand.Rand
}

// NewBuilder creates a Builder placing nodes on a sphere of the default
// radius. A nil rng falls back to an unseeded source.
func NewBuilder(rng *rand.Rand) *Builder {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Builder{radius: DefaultInitialRadius, rng: rng}
}

// Build derives a complete GraphData from the given records: one node per
// record (keyed by file name minus the markdown suffix), edges aggregated
// from topic co-occurrence counts, and initial positions on a Fibonacci
// sphere. The input map is not mutated; assigned node ids are written into
// the returned graph's metadata copy so the caller can persist them.
func (b *Builder) Build(records map[string]metadata.Record) (*GraphData, error) {
	if !b.building.CompareAndSwap(false, true) {
		return nil, ErrRebuildInProgress
	}
	defer b.building.Store(false)

	g := NewGraphData()

	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// First pass collects ids already assigned in earlier runs so fresh
	// allocations never collide with them.
	used := make(map[uint32]bool, len(keys))
	var maxID uint32
	for _, k := range keys {
		if id, ok := parseNodeID(records[k].NodeID); ok {
			used[id] = true
			if id > maxID {
				maxID = id
			}
		}
	}

	nextID := maxID + 1
	keyToID := make(map[string]uint32, len(keys))

	for _, k := range keys {
		rec := records[k].Clone()
		nodeKey := strings.TrimSuffix(k, markdownSuffix)

		id, ok := parseNodeID(rec.NodeID)
		if !ok {
			for used[nextID] {
				nextID++
			}
			id = nextID
			used[id] = true
			rec.NodeID = strconv.FormatUint(uint64(id), 10)
		}
		keyToID[nodeKey] = id

		node := Node{
			ID:          id,
			MetadataKey: nodeKey,
			Label:       nodeKey,
			Mass:        MassFromFileSize(rec.FileSize),
			Flags:       NodeFlagActive,
			Metadata:    nodeMetadata(rec, nodeKey),
		}
		g.Nodes = append(g.Nodes, node)
		g.Metadata[k] = rec
		g.IDToKey[id] = nodeKey
	}

	g.Edges = buildEdges(records, keys, keyToID)

	PlaceFibonacciSphere(g.Nodes, b.radius, b.rng)

	slog.Debug("Graph built", "nodes", len(g.Nodes), "edges", len(g.Edges))
	return g, nil
}

// Building reports whether a build is currently running.
func (b *Builder) Building() bool {
	return b.building.Load()
}

type edgeKey struct {
	a, b uint32
}

// buildEdges aggregates topic co-occurrence counts into canonical undirected
// edges. Unresolved endpoints and self references are skipped.
func buildEdges(records map[string]metadata.Record, keys []string, keyToID map[string]uint32) []Edge {
	weights := make(map[edgeKey]float32)
	for _, k := range keys {
		sourceKey := strings.TrimSuffix(k, markdownSuffix)
		sourceID, ok := keyToID[sourceKey]
		if !ok {
			continue
		}
		for topic, count := range records[k].TopicCounts {
			targetID, ok := keyToID[strings.TrimSuffix(topic, markdownSuffix)]
			if !ok {
				continue
			}
			if targetID == sourceID {
				continue
			}
			key := edgeKey{a: sourceID, b: targetID}
			if key.b < key.a {
				key.a, key.b = key.b, key.a
			}
			weights[key] += float32(count)
		}
	}

	edges := make([]Edge, 0, len(weights))
	for key, w := range weights {
		edges = append(edges, Edge{Source: key.a, Target: key.b, Weight: w})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
	return edges
}

// MassFromFileSize maps a byte size onto the uint8 mass range on a log
// scale. Mass is never zero so repulsion stays defined for empty files.
func MassFromFileSize(size int64) uint8 {
	if size < 0 {
		size = 0
	}
	normalized := math.Log10(float64(size)+1) / 7
	if normalized > 1 {
		normalized = 1
	}
	mass := math.Round(normalized * 255)
	if mass < 1 {
		mass = 1
	}
	return uint8(mass)
}

func parseNodeID(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(id), true
}

func nodeMetadata(rec metadata.Record, nodeKey string) map[string]string {
	m := map[string]string{
		"fileName":       rec.FileName,
		"name":           nodeKey,
		"metadataId":     nodeKey,
		"fileSize":       strconv.FormatInt(rec.FileSize, 10),
		"nodeSize":       strconv.FormatFloat(rec.NodeSize, 'f', -1, 64),
		"hyperlinkCount": strconv.Itoa(rec.HyperlinkCount),
		"sha1":           rec.SHA1,
		"lastModified":   rec.LastModified.UTC().Format(time.RFC3339),
	}
	if rec.ExternalLink != "" {
		m["externalLink"] = rec.ExternalLink
	}
	if rec.LastProcessed != nil {
		m["lastProcessed"] = rec.LastProcessed.UTC().Format(time.RFC3339)
	}
	return m
}
