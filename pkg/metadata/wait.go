package metadata

import (
	"context"
	"fmt"
	"os"
	"time"
)

const (
	// DefaultWaitTimeout bounds how long WaitForFile polls before giving up.
	DefaultWaitTimeout = 5 * time.Second

	waitPollInterval = 100 * time.Millisecond
)

// WaitForFile polls until the file at path exists, the timeout elapses, or
// the context is cancelled. It is a liveness precondition for the first
// graph build, not part of the engine's contract.
func WaitForFile(ctx context.Context, path string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	deadline := time.Now().Add(timeout)

	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out after %v waiting for %s", timeout, path)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitPollInterval):
		}
	}
}
