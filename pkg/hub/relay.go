package hub

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const originIDLen = 36

// Relay shares position frames between daemon replicas over a redis
// channel. Published frames carry this replica's origin id so the
// subscriber loop can ignore its own traffic; frames from other origins are
// fed into the local broadcaster.
type Relay struct {
	client   *redis.Client
	channel  string
	originID string
	local    Broadcaster
}

// NewRelay creates a relay publishing on channel and forwarding remote
// frames into local.
func NewRelay(client *redis.Client, channel string, local Broadcaster) *Relay {
	return &Relay{
		client:   client,
		channel:  channel,
		originID: uuid.NewString(),
		local:    local,
	}
}

// Broadcast publishes the frame to the relay channel. Fire and forget:
// publish errors are logged, never surfaced.
func (r *Relay) Broadcast(frame []byte) {
	payload := make([]byte, 0, originIDLen+len(frame))
	payload = append(payload, r.originID...)
	payload = append(payload, frame...)

	if err := r.client.Publish(context.Background(), r.channel, payload).Err(); err != nil {
		slog.Warn("Relay publish failed", "channel", r.channel, "error", err)
		return
	}
	relayPublished.Inc()
}

// Run subscribes to the relay channel and forwards frames from other
// replicas into the local broadcaster until the context ends.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	slog.Info("Relay subscribed", "channel", r.channel, "originID", r.originID)
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			payload := []byte(msg.Payload)
			if len(payload) < originIDLen {
				slog.Warn("Relay frame too short", "bytes", len(payload))
				continue
			}
			if string(payload[:originIDLen]) == r.originID {
				continue
			}
			relayReceived.Inc()
			if r.local != nil {
				r.local.Broadcast(payload[originIDLen:])
			}
		}
	}
}

// MultiBroadcaster fans one frame out to several broadcasters, typically
// the local hub plus the relay.
type MultiBroadcaster []Broadcaster

// Broadcast delivers the frame to every target.
func (m MultiBroadcaster) Broadcast(frame []byte) {
	for _, b := range m {
		b.Broadcast(frame)
	}
}
