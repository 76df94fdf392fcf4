package notify

import (
	"context"
	"encoding/json"
	"fmt"

	redisclient "github.com/coinflow/payments/internal/infra/redis"
)

// RedisEmitter publishes events to the realtime notification channel.
type RedisEmitter struct {
	client  *redisclient.Client
	channel string
}

// NewRedisEmitter creates a pub/sub emitter.
func NewRedisEmitter(client *redisclient.Client, channel string) *RedisEmitter {
	return &RedisEmitter{client: client, channel: channel}
}

// Emit publishes one event.
func (e *RedisEmitter) Emit(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return e.client.Publish(ctx, e.channel, payload)
}
