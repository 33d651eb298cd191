package feed

import (
	"context"
	"log/slog"
	"sync"
)

const subscriberBuffer = 16

// MemoryBroker is an in-process Broker for single-instance deployments.
// It is safe for concurrent use.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[*memorySub]struct{}
}

type memorySub struct {
	filter Filter
	ch     chan Event
	once   sync.Once
}

// NewMemoryBroker creates an in-process broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[*memorySub]struct{})}
}

// Publish delivers the event to every matching subscriber. A subscriber
// that cannot keep up has the event dropped rather than blocking the
// writer; subscribers are expected to re-fetch on the next event.
func (b *MemoryBroker) Publish(_ context.Context, event Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		if !sub.filter.Matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			slog.Warn("dropping feed event for slow subscriber",
				"relation", event.Relation, "op", string(event.Op))
		}
	}
	return nil
}

// Subscribe registers a new subscription for events matching the filter.
func (b *MemoryBroker) Subscribe(_ context.Context, filter Filter) (*Subscription, error) {
	sub := &memorySub{
		filter: filter,
		ch:     make(chan Event, subscriberBuffer),
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return &Subscription{
		C: sub.ch,
		cancel: func() {
			sub.once.Do(func() {
				b.mu.Lock()
				delete(b.subs, sub)
				b.mu.Unlock()
				close(sub.ch)
			})
		},
	}, nil
}

// SubscriberCount returns the number of live subscriptions.
func (b *MemoryBroker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
