package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rmax-ai/orbweaver/pkg/physics"
)

const (
	// DefaultTickInterval paces the physics loop at roughly sixty ticks
	// per second.
	DefaultTickInterval = 16 * time.Millisecond

	// ShutdownTimeout bounds how long Shutdown waits for the loop to
	// confirm it has exited.
	ShutdownTimeout = 5 * time.Second

	shutdownPollInterval = 50 * time.Millisecond
)

// ErrShutdownTimeout means the loop did not confirm its exit inside the
// shutdown window. Non-fatal: callers log it and move on.
var ErrShutdownTimeout = errors.New("shutdown confirmation timed out")

// Instance is one simulation loop bound to a fixed parameter set.
// Construction is split from activation: NewInstance returns an un-started
// handle and Start launches the loop, so tests can drive activation
// deterministically. Params are captured once and never change; new physics
// behavior means a new instance, which supersedes this one on Start.
type Instance struct {
	id           string
	svc          *Service
	params       physics.SimulationParams
	tickInterval time.Duration

	shutdownRequested atomic.Bool
	shutdownComplete  atomic.Bool
}

// NewInstance creates an un-started simulation instance with a fresh random
// id. A non-positive tickInterval falls back to DefaultTickInterval.
func (s *Service) NewInstance(params physics.SimulationParams, tickInterval time.Duration) *Instance {
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	return &Instance{
		id:           uuid.NewString(),
		svc:          s,
		params:       params,
		tickInterval: tickInterval,
	}
}

// ID returns the instance's random identifier.
func (i *Instance) ID() string {
	return i.id
}

// Params returns the parameter set captured at construction.
func (i *Instance) Params() physics.SimulationParams {
	return i.params
}

// Start registers this instance as the globally active one and launches its
// loop in the background. If another loop is already running the registry
// logs the conflict and this instance takes over (last-writer-wins); the
// superseded loop notices on its next iteration and exits.
func (i *Instance) Start(ctx context.Context) {
	i.svc.registry.TryActivate(i.id)
	i.svc.log.Info("Simulation loop starting",
		"instanceID", i.id,
		"tickInterval", i.tickInterval,
		"accelerator", i.svc.engine.HasAccelerator())
	go i.run(ctx)
}

// run is the simulation loop. The deferred cleanup is the exit guarantee:
// whatever path ends the loop, the global running flag is released for this
// id and the completion flag is set exactly once.
func (i *Instance) run(ctx context.Context) {
	defer func() {
		i.svc.registry.Deactivate(i.id)
		i.shutdownComplete.Store(true)
		i.svc.log.Info("Simulation loop exited", "instanceID", i.id)
	}()

	ticker := i.svc.clock.NewTicker(i.tickInterval)
	defer ticker.Stop()

	for {
		// Cooperative cancellation: flags are checked once per
		// iteration, so an in-flight tick always completes first.
		if i.shutdownRequested.Load() {
			return
		}
		if active, _ := i.svc.registry.Current(); active != i.id {
			i.svc.log.Warn("Simulation instance superseded, exiting", "instanceID", i.id, "activeID", active)
			return
		}

		if err := i.svc.tick(ctx, i.params); err != nil {
			// Tick failures degrade the layout for one interval;
			// they never stop the loop.
			i.svc.log.Error("Physics tick failed", "instanceID", i.id, "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}

// Shutdown asks this instance's loop to stop and waits for confirmation.
// A superseded instance is refused without error (logged only). The wait
// polls at a fixed interval up to ShutdownTimeout; timing out returns
// ErrShutdownTimeout, which callers treat as non-fatal.
func (i *Instance) Shutdown() error {
	matched := i.svc.registry.IfActive(i.id, func() {
		i.shutdownRequested.Store(true)
	})
	if !matched {
		active, _ := i.svc.registry.Current()
		i.svc.log.Warn("Shutdown refused for superseded instance", "instanceID", i.id, "activeID", active)
		return nil
	}

	deadline := i.svc.clock.Now().Add(ShutdownTimeout)
	for {
		if !i.svc.registry.Running() && i.shutdownComplete.Load() {
			i.svc.log.Info("Simulation loop shutdown confirmed", "instanceID", i.id)
			return nil
		}
		if i.svc.clock.Now().After(deadline) {
			i.svc.log.Warn("Simulation loop shutdown timed out", "instanceID", i.id)
			return ErrShutdownTimeout
		}
		i.svc.clock.Sleep(shutdownPollInterval)
	}
}

// Diagnostics is a best-effort view of lifecycle state.
type Diagnostics struct {
	Available          bool   `json:"available"`
	InstanceID         string `json:"instanceId,omitempty"`
	ActiveID           string `json:"activeId,omitempty"`
	IsActive           bool   `json:"isActive"`
	Running            bool   `json:"running"`
	ShutdownRequested  bool   `json:"shutdownRequested"`
	AcceleratorPresent bool   `json:"acceleratorPresent"`
}

// Diagnostics snapshots lifecycle state without blocking. When the
// lifecycle section is contended it reports Available=false rather than
// wait.
func (i *Instance) Diagnostics() Diagnostics {
	activeID, running, ok := i.svc.registry.TrySnapshot()
	if !ok {
		return Diagnostics{Available: false}
	}
	return Diagnostics{
		Available:          true,
		InstanceID:         i.id,
		ActiveID:           activeID,
		IsActive:           activeID == i.id,
		Running:            running,
		ShutdownRequested:  i.shutdownRequested.Load(),
		AcceleratorPresent: i.svc.engine.HasAccelerator(),
	}
}
