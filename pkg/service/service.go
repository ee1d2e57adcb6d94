// Package service is the simulation core: it owns the live graph, runs the
// physics loop under the single-active-instance contract, and streams
// position frames to connected viewers.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rmax-ai/orbweaver/pkg/graph"
	"github.com/rmax-ai/orbweaver/pkg/hub"
	"github.com/rmax-ai/orbweaver/pkg/metadata"
	"github.com/rmax-ai/orbweaver/pkg/physics"
	"github.com/rmax-ai/orbweaver/pkg/protocol"
)

// DefaultBroadcastInterval is the cadence of the secondary broadcast loop
// that pushes frames independently of physics ticks.
const DefaultBroadcastInterval = 100 * time.Millisecond

// Config wires a Service together. Engine, Builder, Store and Broadcaster
// are required; the rest default.
type Config struct {
	Engine      *physics.Engine
	Builder     *graph.Builder
	Store       metadata.Store
	Broadcaster hub.Broadcaster

	CacheTTL          time.Duration
	UpdateInterval    time.Duration
	BroadcastInterval time.Duration

	// Archiver, when set, snapshots the graph after every successful
	// rebuild.
	Archiver *Archiver

	// Clock is swappable for deterministic loop tests.
	Clock  clockwork.Clock
	Logger *slog.Logger
}

// Service coordinates the graph, the physics engine, the position cache and
// the broadcast pipeline. The graph and the id-indexed node map are each
// under their own RWMutex; when both are taken the order is graph first,
// then node map, and both are released before any sleep.
type Service struct {
	graphMu sync.RWMutex
	graph   *graph.GraphData

	nodeMu  sync.RWMutex
	nodeMap map[uint32]graph.Node

	engine      *physics.Engine
	builder     *graph.Builder
	store       metadata.Store
	broadcaster hub.Broadcaster

	cache    *PositionCache
	gate     *UpdateGate
	registry *LoopRegistry
	archiver *Archiver

	broadcastInterval time.Duration
	clock             clockwork.Clock
	log               *slog.Logger
}

// New creates a Service with an empty graph. Call Rebuild to populate it.
func New(cfg Config) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.BroadcastInterval
	if interval <= 0 {
		interval = DefaultBroadcastInterval
	}
	return &Service{
		graph:             graph.NewGraphData(),
		nodeMap:           make(map[uint32]graph.Node),
		engine:            cfg.Engine,
		builder:           cfg.Builder,
		store:             cfg.Store,
		broadcaster:       cfg.Broadcaster,
		cache:             NewPositionCache(cfg.CacheTTL, clock),
		gate:              NewUpdateGate(cfg.UpdateInterval, clock),
		registry:          NewLoopRegistry(),
		archiver:          cfg.Archiver,
		broadcastInterval: interval,
		clock:             clock,
		log:               logger.With("component", "service"),
	}
}

// Registry exposes the lifecycle registry, shared by every instance the
// service constructs.
func (s *Service) Registry() *LoopRegistry {
	return s.registry
}

// Engine returns the physics engine.
func (s *Service) Engine() *physics.Engine {
	return s.engine
}

// Cache returns the position cache.
func (s *Service) Cache() *PositionCache {
	return s.cache
}

// Rebuild replaces the graph wholesale from the metadata store. A build
// already in flight surfaces graph.ErrRebuildInProgress; build errors
// propagate to the caller. Assigned node ids are written back to the store
// best-effort.
func (s *Service) Rebuild(ctx context.Context) (nodes, edges int, err error) {
	records, err := s.store.Load()
	if err != nil {
		buildsTotal.WithLabelValues("error").Inc()
		return 0, 0, fmt.Errorf("failed to load metadata: %w", err)
	}

	g, err := s.builder.Build(records)
	if err != nil {
		buildsTotal.WithLabelValues("error").Inc()
		return 0, 0, err
	}

	nodeMap := make(map[uint32]graph.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		nodeMap[n.ID] = n.Clone()
	}

	s.graphMu.Lock()
	s.nodeMu.Lock()
	s.graph = g
	s.nodeMap = nodeMap
	s.nodeMu.Unlock()
	s.graphMu.Unlock()
	s.cache.Invalidate()

	// Persist ids assigned during the build so they stay stable across
	// runs. The graph itself is already live, so a save failure is not
	// a build failure.
	if err := s.store.Save(g.Metadata); err != nil {
		s.log.Warn("Failed to persist assigned node ids", "error", err)
	}

	buildsTotal.WithLabelValues("ok").Inc()
	graphNodes.Set(float64(len(g.Nodes)))
	graphEdges.Set(float64(len(g.Edges)))
	s.log.Info("Graph rebuilt", "nodes", len(g.Nodes), "edges", len(g.Edges))

	if s.archiver != nil {
		if key, err := s.archiver.Archive(ctx, s.Graph()); err != nil {
			s.log.Warn("Snapshot archive failed", "error", err)
		} else {
			s.log.Info("Snapshot archived", "key", key)
		}
	}

	s.Broadcast()
	return len(g.Nodes), len(g.Edges), nil
}

// Snapshot returns a cloned copy of all node state and its capture time,
// served from the cache when the entry is inside its TTL.
func (s *Service) Snapshot() ([]graph.Node, time.Time) {
	if nodes, at, ok := s.cache.Get(); ok {
		return nodes, at
	}

	s.graphMu.RLock()
	nodes := cloneNodes(s.graph.Nodes)
	s.graphMu.RUnlock()

	at := s.cache.Put(nodes)
	return nodes, at
}

// Edges returns a copy of the current edge set.
func (s *Service) Edges() []graph.Edge {
	s.graphMu.RLock()
	defer s.graphMu.RUnlock()
	return append([]graph.Edge(nil), s.graph.Edges...)
}

// Graph returns a deep copy of the whole graph, for export.
func (s *Service) Graph() *graph.GraphData {
	s.graphMu.RLock()
	defer s.graphMu.RUnlock()
	return s.graph.Clone()
}

// Page is one page of graph data plus totals, for the paginated HTTP view.
type Page struct {
	Nodes      []graph.Node `json:"nodes"`
	Edges      []graph.Edge `json:"edges"`
	TotalNodes int          `json:"totalNodes"`
	TotalEdges int          `json:"totalEdges"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
}

// GraphPage returns the given page of nodes (cache-served) and the edges
// whose endpoints both fall inside that page. Page numbers start at 1; a
// non-positive limit returns everything on one page.
func (s *Service) GraphPage(page, limit int) Page {
	nodes, _ := s.Snapshot()
	edges := s.Edges()

	totalNodes := len(nodes)
	totalEdges := len(edges)

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = totalNodes
	}

	start := (page - 1) * limit
	if start > totalNodes {
		start = totalNodes
	}
	end := start + limit
	if end > totalNodes {
		end = totalNodes
	}
	pageNodes := nodes[start:end]

	inPage := make(map[uint32]bool, len(pageNodes))
	for _, n := range pageNodes {
		inPage[n.ID] = true
	}
	pageEdges := make([]graph.Edge, 0)
	for _, e := range edges {
		if inPage[e.Source] && inPage[e.Target] {
			pageEdges = append(pageEdges, e)
		}
	}

	return Page{
		Nodes:      pageNodes,
		Edges:      pageEdges,
		TotalNodes: totalNodes,
		TotalEdges: totalEdges,
		Page:       page,
		Limit:      limit,
	}
}

// NodeUpdate is an externally submitted position/velocity change for one
// node. Identity fields are never touched by an update.
type NodeUpdate struct {
	ID       uint32     `json:"id"`
	Position graph.Vec3 `json:"position"`
	Velocity graph.Vec3 `json:"velocity"`
}

// UpdateNodePositions applies a batch of external updates if the rate gate
// admits it. Rejected batches are dropped silently and leave the graph
// untouched; unknown node ids within an accepted batch are skipped.
// Returns whether the batch was applied.
func (s *Service) UpdateNodePositions(updates []NodeUpdate) bool {
	if !s.gate.Allow() {
		updatesTotal.WithLabelValues("rejected").Inc()
		return false
	}

	s.graphMu.Lock()
	s.nodeMu.Lock()
	for _, u := range updates {
		n := s.graph.NodeByID(u.ID)
		if n == nil {
			continue
		}
		n.Position = u.Position
		n.Velocity = u.Velocity
		s.nodeMap[u.ID] = n.Clone()
	}
	s.nodeMu.Unlock()
	s.graphMu.Unlock()
	s.cache.Invalidate()

	updatesTotal.WithLabelValues("accepted").Inc()
	s.Broadcast()
	return true
}

// Broadcast projects the current snapshot onto the wire format and hands
// one frame to the client registry. Fire and forget: per-client delivery is
// the registry's concern.
func (s *Service) Broadcast() {
	if s.broadcaster == nil {
		return
	}
	nodes, _ := s.Snapshot()
	if len(nodes) == 0 {
		return
	}

	wire := make([]protocol.WireNode, len(nodes))
	for i, n := range nodes {
		wire[i] = protocol.FromNode(n)
	}
	s.broadcaster.Broadcast(protocol.Encode(wire))
	broadcastsTotal.Inc()
}

// RunBroadcastLoop pushes frames at a fixed cadence independent of physics
// ticks, so viewers keep receiving state even when the simulation is idle
// or a tick fails. It blocks until the context is cancelled.
func (s *Service) RunBroadcastLoop(ctx context.Context) {
	ticker := s.clock.NewTicker(s.broadcastInterval)
	defer ticker.Stop()

	s.log.Info("Broadcast loop started", "interval", s.broadcastInterval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Broadcast loop stopped")
			return
		case <-ticker.Chan():
			s.Broadcast()
		}
	}
}

// tick runs one physics step and triggers the post-tick broadcast. The
// cache is invalidated after the data locks are released, bounding snapshot
// staleness to one tick.
func (s *Service) tick(ctx context.Context, params physics.SimulationParams) error {
	start := s.clock.Now()

	s.graphMu.Lock()
	s.nodeMu.Lock()
	err := s.engine.Tick(ctx, s.graph, s.nodeMap, params)
	s.nodeMu.Unlock()
	s.graphMu.Unlock()
	s.cache.Invalidate()

	tickDuration.Observe(s.clock.Since(start).Seconds())
	if err != nil {
		ticksTotal.WithLabelValues("error").Inc()
		return err
	}
	ticksTotal.WithLabelValues("ok").Inc()

	s.Broadcast()
	return nil
}
