package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Channel is the pub/sub channel live dashboards subscribe to.
const Channel = "admission.events"

// RedisBroadcaster publishes events as JSON on a redis pub/sub channel.
// Delivery is best-effort; subscribers that are offline miss events, which is
// acceptable for a live dashboard backed by the durable audit table.
type RedisBroadcaster struct {
	client *redis.Client
}

// NewRedisBroadcaster wraps a connected redis client.
func NewRedisBroadcaster(client *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{client: client}
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	if err := b.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}

var _ Broadcaster = (*RedisBroadcaster)(nil)
