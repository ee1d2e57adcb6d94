package hub

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type captureBroadcaster struct {
	mu     sync.Mutex
	frames [][]byte
}

func (c *captureBroadcaster) Broadcast(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(frame))
	copy(cp, frame)
	c.frames = append(c.frames, cp)
}

func (c *captureBroadcaster) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *captureBroadcaster) last() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}

func TestRelay_ForwardsRemoteFrames(t *testing.T) {
	// 1. In-memory redis shared by two replicas
	mr := miniredis.RunT(t)
	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer clientA.Close()
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer clientB.Close()

	local := &captureBroadcaster{}
	relayA := NewRelay(clientA, "orbweaver:frames", local)
	relayB := NewRelay(clientB, "orbweaver:frames", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		relayA.Run(ctx)
		close(done)
	}()

	// 2. Publish from the other replica until the subscriber sees it
	frame := []byte{0xde, 0xad, 0xbe, 0xef}
	deadline := time.Now().Add(5 * time.Second)
	for local.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Remote frame never arrived")
		}
		relayB.Broadcast(frame)
		time.Sleep(50 * time.Millisecond)
	}
	if !bytes.Equal(local.last(), frame) {
		t.Errorf("Forwarded frame mismatch: %v", local.last())
	}

	// 3. The subscriber must ignore its own publishes
	before := local.count()
	relayA.Broadcast([]byte{1, 2, 3})
	time.Sleep(200 * time.Millisecond)
	if local.count() != before {
		t.Error("Relay forwarded its own frame back into the local hub")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Relay did not stop on cancel")
	}
}

func TestRelay_IgnoresShortPayloads(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	local := &captureBroadcaster{}
	relay := NewRelay(client, "orbweaver:frames", local)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	// A payload shorter than the origin prefix is dropped, not forwarded
	client.Publish(context.Background(), "orbweaver:frames", "short")
	time.Sleep(200 * time.Millisecond)
	if local.count() != 0 {
		t.Errorf("Expected malformed payload dropped, got %d frames", local.count())
	}
}
