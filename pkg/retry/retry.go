package retry

import (
	"context"
	"log/slog"
	"time"
)

// Policy retries a fallible operation with exponentially growing delays.
// Delay before attempt n (0-based, from the second attempt on) is
// Base * Multiplier^(n-1).
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Multiplier  float64

	// Sleep is swappable for deterministic tests. Nil means a real
	// context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy matches the accelerator retry contract: three attempts,
// half a second base delay, doubling.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Base:        500 * time.Millisecond,
		Multiplier:  2.0,
	}
}

// Delay returns the wait before the given 0-based attempt. Attempt 0 runs
// immediately.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := float64(p.Base)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	return time.Duration(d)
}

// Run invokes op up to MaxAttempts times, sleeping between attempts.
// It returns nil on the first success, the last error otherwise, and stops
// early when the context is cancelled.
func (p Policy) Run(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := p.sleep(ctx, p.Delay(attempt)); err != nil {
				return err
			}
		}
		if lastErr = op(); lastErr == nil {
			return nil
		}
		slog.Warn("Retryable operation failed", "attempt", attempt+1, "maxAttempts", attempts, "error", lastErr)
	}
	return lastErr
}

// RunWithFallback retries op, then runs fallback exactly once after the
// attempts are exhausted. When the fallback also fails, the error surfaced
// is the primary's last error; the fallback failure is only logged.
func (p Policy) RunWithFallback(ctx context.Context, op func() error, fallback func() error) error {
	primaryErr := p.Run(ctx, op)
	if primaryErr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return primaryErr
	}

	if fbErr := fallback(); fbErr != nil {
		slog.Error("Fallback failed after retries exhausted", "fallbackError", fbErr, "primaryError", primaryErr)
		return primaryErr
	}
	return nil
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
