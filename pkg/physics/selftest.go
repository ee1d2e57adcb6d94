package physics

import (
	"log/slog"
	"time"
)

// DefaultSelfTestDelay is how long after construction the device probe runs,
// giving asynchronous device setup time to settle.
const DefaultSelfTestDelay = time.Second

// SelfTest probes the attached accelerator with one lightweight computation.
// A failure is logged, never fatal: when rebuild is non-nil one fresh device
// construction is attempted and, if it succeeds, the replacement is attached.
// This is the hook for future self-healing; the running loop keeps whatever
// device the engine holds.
func (e *Engine) SelfTest(rebuild func() (Accelerator, error)) {
	accel := e.Accelerator()
	if accel == nil {
		return
	}

	err := accel.TestCompute()
	if err == nil {
		slog.Info("Accelerator self test passed")
		return
	}
	slog.Warn("Accelerator self test failed", "error", err)

	if rebuild == nil {
		return
	}
	fresh, err := rebuild()
	if err != nil {
		slog.Warn("Accelerator reconstruction failed", "error", err)
		return
	}
	e.SetAccelerator(fresh)
	slog.Info("Accelerator reconstructed after failed self test")
}

// ScheduleSelfTest runs SelfTest on its own goroutine after delay. A
// non-positive delay uses DefaultSelfTestDelay.
func (e *Engine) ScheduleSelfTest(delay time.Duration, rebuild func() (Accelerator, error)) {
	if delay <= 0 {
		delay = DefaultSelfTestDelay
	}
	time.AfterFunc(delay, func() { e.SelfTest(rebuild) })
}
