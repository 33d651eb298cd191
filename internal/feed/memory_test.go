package feed_test

import (
	"context"
	"testing"
	"time"

	"github.com/wealthforge/network/internal/feed"
)

func TestMemoryBroker_PublishReachesMatchingSubscriber(t *testing.T) {
	broker := feed.NewMemoryBroker()
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, feed.Filter{Relation: "messages", PairA: "u1", PairB: "u2"})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	event := feed.Event{Relation: "messages", Op: feed.OpInsert, SenderID: "u1", ReceiverID: "u2"}
	if err := broker.Publish(ctx, event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-sub.C:
		if got.SenderID != "u1" || got.Op != feed.OpInsert {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestMemoryBroker_FilterRejectsOtherConversations(t *testing.T) {
	broker := feed.NewMemoryBroker()
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, feed.Filter{Relation: "messages", PairA: "u1", PairB: "u2"})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	// Event for an unrelated pair must not be delivered.
	if err := broker.Publish(ctx, feed.Event{
		Relation: "messages", Op: feed.OpInsert, SenderID: "u1", ReceiverID: "u3",
	}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	// Reversed direction of the subscribed pair must be delivered.
	if err := broker.Publish(ctx, feed.Event{
		Relation: "messages", Op: feed.OpInsert, SenderID: "u2", ReceiverID: "u1",
	}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-sub.C:
		if got.SenderID != "u2" {
			t.Fatalf("expected the reversed-pair event, got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestMemoryBroker_CloseStopsDeliveryAndReleasesSubscriber(t *testing.T) {
	broker := feed.NewMemoryBroker()
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, feed.Filter{Relation: "messages"})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if broker.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", broker.SubscriberCount())
	}

	sub.Close()
	sub.Close() // double close must be safe

	if broker.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers after close, got %d", broker.SubscriberCount())
	}

	// The channel is closed, so receives complete immediately.
	if _, ok := <-sub.C; ok {
		t.Fatal("expected closed channel")
	}
}

func TestFilter_Matches(t *testing.T) {
	tests := []struct {
		name   string
		filter feed.Filter
		event  feed.Event
		want   bool
	}{
		{"empty filter matches all", feed.Filter{}, feed.Event{Relation: "projects"}, true},
		{"relation match", feed.Filter{Relation: "projects"}, feed.Event{Relation: "projects"}, true},
		{"relation mismatch", feed.Filter{Relation: "projects"}, feed.Event{Relation: "messages"}, false},
		{
			"pair straight",
			feed.Filter{Relation: "messages", PairA: "a", PairB: "b"},
			feed.Event{Relation: "messages", SenderID: "a", ReceiverID: "b"},
			true,
		},
		{
			"pair reversed",
			feed.Filter{Relation: "messages", PairA: "a", PairB: "b"},
			feed.Event{Relation: "messages", SenderID: "b", ReceiverID: "a"},
			true,
		},
		{
			"pair mismatch",
			feed.Filter{Relation: "messages", PairA: "a", PairB: "b"},
			feed.Event{Relation: "messages", SenderID: "a", ReceiverID: "c"},
			false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Matches(tc.event); got != tc.want {
				t.Fatalf("Matches() = %v, want %v", got, tc.want)
			}
		})
	}
}
