package service

import (
	"log/slog"
	"sync"
)

// LoopRegistry enforces the single-active-simulation contract. One registry
// is shared by every simulation instance in the process; its mutex guards
// only lifecycle transitions and is never held across a wait.
//
// Activation is last-writer-wins: starting a new instance while another is
// active logs the conflict and takes over rather than failing.
type LoopRegistry struct {
	mu       sync.Mutex
	running  bool
	activeID string
}

// NewLoopRegistry creates an empty registry.
func NewLoopRegistry() *LoopRegistry {
	return &LoopRegistry{}
}

// TryActivate records id as the globally active instance and marks the loop
// running. It returns the id it displaced and whether a conflict occurred.
func (r *LoopRegistry) TryActivate(id string) (displaced string, conflict bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		conflict = true
		displaced = r.activeID
		slog.Warn("Simulation loop already running, taking over", "activeID", r.activeID, "newID", id)
	}
	r.activeID = id
	// Clear then set so a half-finished transition cannot leave the flag
	// stuck in a stale state.
	r.running = false
	r.running = true
	return displaced, conflict
}

// Deactivate clears the running state if id is still the active instance.
// A superseded instance's cleanup is a no-op here, leaving the winner's
// state untouched.
func (r *LoopRegistry) Deactivate(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeID != id {
		return false
	}
	r.running = false
	return true
}

// Current returns the active instance id and the running flag.
func (r *LoopRegistry) Current() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID, r.running
}

// Running reports the global running flag.
func (r *LoopRegistry) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// IfActive runs fn under the lifecycle section when id is the active
// instance, returning whether it matched. Used by the shutdown protocol to
// flag the instance without racing a concurrent takeover.
func (r *LoopRegistry) IfActive(id string, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeID != id {
		return false
	}
	if fn != nil {
		fn()
	}
	return true
}

// TrySnapshot returns the registry state without blocking. When the section
// is contended it reports ok=false and callers present the state as
// unavailable.
func (r *LoopRegistry) TrySnapshot() (activeID string, running bool, ok bool) {
	if !r.mu.TryLock() {
		return "", false, false
	}
	defer r.mu.Unlock()
	return r.activeID, r.running, true
}
