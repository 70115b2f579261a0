package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"electroCare/domain"
	"electroCare/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const defaultEventChannel = "electrocare:events"

// EventBus fans realtime events out to every API instance over Redis
// pub/sub. Like the hub it feeds, it is fire and forget.
type EventBus struct {
	client  *redis.Client
	channel string
}

func NewEventBus(client *redis.Client) *EventBus {
	return &EventBus{
		client:  client,
		channel: defaultEventChannel,
	}
}

func (b *EventBus) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Relay delivers every event received on the channel to deliver until ctx
// is cancelled.
func (b *EventBus) Relay(ctx context.Context, deliver func(domain.Event)) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warn("Dropping malformed realtime event", err)
				continue
			}
			deliver(event)
		}
	}
}
