package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

const redisChannel = "wealthforge:feed"

// RedisBroker is a Broker backed by Redis pub/sub, so change events
// reach subscribers connected to other instances.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker creates a broker over the given Redis client.
func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

// Publish serializes the event and publishes it to the shared channel.
func (b *RedisBroker) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, redisChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe opens a dedicated Redis subscription and filters events
// client-side. Closing the subscription closes the underlying pubsub.
func (b *RedisBroker) Subscribe(ctx context.Context, filter Filter) (*Subscription, error) {
	pubsub := b.client.Subscribe(ctx, redisChannel)

	// Wait for the subscription to be confirmed so no event published
	// after Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("confirm subscription: %w", err)
	}

	out := make(chan Event, subscriberBuffer)
	var once sync.Once

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.Warn("malformed feed event", "error", err)
				continue
			}
			if !filter.Matches(event) {
				continue
			}
			select {
			case out <- event:
			default:
				slog.Warn("dropping feed event for slow subscriber",
					"relation", event.Relation, "op", string(event.Op))
			}
		}
	}()

	return &Subscription{
		C: out,
		cancel: func() {
			once.Do(func() { pubsub.Close() })
		},
	}, nil
}
