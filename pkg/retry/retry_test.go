package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func recordingPolicy(maxAttempts int) (Policy, *[]time.Duration) {
	slept := &[]time.Duration{}
	p := Policy{
		MaxAttempts: maxAttempts,
		Base:        500 * time.Millisecond,
		Multiplier:  2.0,
		Sleep: func(ctx context.Context, d time.Duration) error {
			*slept = append(*slept, d)
			return nil
		},
	}
	return p, slept
}

func TestPolicy_RunSucceedsFirstTry(t *testing.T) {
	p, slept := recordingPolicy(3)
	calls := 0
	err := p.Run(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
	if len(*slept) != 0 {
		t.Errorf("Expected no sleeps on immediate success, got %v", *slept)
	}
}

func TestPolicy_RunDoublingDelays(t *testing.T) {
	// 1. Operation that always fails
	p, slept := recordingPolicy(3)
	failure := errors.New("step failed")
	calls := 0
	err := p.Run(context.Background(), func() error {
		calls++
		return failure
	})

	// 2. Exactly MaxAttempts calls, delays double between them
	if !errors.Is(err, failure) {
		t.Fatalf("Expected the operation error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
	want := []time.Duration{500 * time.Millisecond, time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("Expected %d sleeps, got %v", len(want), *slept)
	}
	for i, d := range want {
		if (*slept)[i] != d {
			t.Errorf("Sleep %d: expected %v, got %v", i, d, (*slept)[i])
		}
	}
}

func TestPolicy_RunEventualSuccess(t *testing.T) {
	p, _ := recordingPolicy(3)
	calls := 0
	err := p.Run(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestPolicy_RunWithFallback(t *testing.T) {
	// 1. Primary always fails, fallback succeeds
	p, _ := recordingPolicy(3)
	primaryCalls, fallbackCalls := 0, 0
	gpuErr := errors.New("accelerator step failed")

	err := p.RunWithFallback(context.Background(),
		func() error { primaryCalls++; return gpuErr },
		func() error { fallbackCalls++; return nil })
	if err != nil {
		t.Fatalf("Expected fallback to rescue, got %v", err)
	}
	if primaryCalls != 3 {
		t.Errorf("Expected 3 primary attempts, got %d", primaryCalls)
	}
	if fallbackCalls != 1 {
		t.Errorf("Expected fallback to run exactly once, got %d", fallbackCalls)
	}

	// 2. Both fail: the surfaced error is the primary's, not the fallback's
	fallbackErr := errors.New("cpu path failed")
	err = p.RunWithFallback(context.Background(),
		func() error { return gpuErr },
		func() error { return fallbackErr })
	if !errors.Is(err, gpuErr) {
		t.Errorf("Expected primary error surfaced, got %v", err)
	}
	if errors.Is(err, fallbackErr) {
		t.Error("Fallback error must not be surfaced")
	}

	// 3. Primary succeeds: fallback never runs
	fallbackCalls = 0
	err = p.RunWithFallback(context.Background(),
		func() error { return nil },
		func() error { fallbackCalls++; return nil })
	if err != nil || fallbackCalls != 0 {
		t.Errorf("Expected no fallback on success, err=%v calls=%d", err, fallbackCalls)
	}
}

func TestPolicy_RunRespectsContext(t *testing.T) {
	p := Policy{MaxAttempts: 5, Base: 10 * time.Millisecond, Multiplier: 2.0}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Run(ctx, func() error {
			calls++
			if calls == 1 {
				cancel()
			}
			return errors.New("always")
		})
	}()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not observe cancellation")
	}
	if calls != 1 {
		t.Errorf("Expected no further attempts after cancel, got %d", calls)
	}
}

func TestPolicy_Delay(t *testing.T) {
	p := DefaultPolicy()
	if d := p.Delay(0); d != 0 {
		t.Errorf("Expected no delay before first attempt, got %v", d)
	}
	if d := p.Delay(1); d != 500*time.Millisecond {
		t.Errorf("Expected 500ms before second attempt, got %v", d)
	}
	if d := p.Delay(2); d != time.Second {
		t.Errorf("Expected 1s before third attempt, got %v", d)
	}
}
