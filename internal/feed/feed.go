// Package feed delivers row-change notifications from writers to live
// subscribers. Writers publish an event after every committed insert,
// update, or delete; subscribers filter by relation and, for messages,
// by conversation pair, and react by re-fetching.
package feed

import "context"

// Op is the kind of row change.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event is a change notification for a single row in a named relation.
// For message events, SenderID and ReceiverID carry the conversation
// endpoints so subscribers can filter without loading the row.
type Event struct {
	Relation   string `json:"relation"`
	Op         Op     `json:"op"`
	RowID      string `json:"rowId"`
	SenderID   string `json:"senderId,omitempty"`
	ReceiverID string `json:"receiverId,omitempty"`
}

// Filter selects events for a subscription. Zero-value fields match
// everything; PairA/PairB restrict message events to the conversation
// between the two ids, in either direction.
type Filter struct {
	Relation string
	PairA    string
	PairB    string
}

// Matches reports whether the event passes the filter.
func (f Filter) Matches(e Event) bool {
	if f.Relation != "" && f.Relation != e.Relation {
		return false
	}
	if f.PairA != "" || f.PairB != "" {
		straight := e.SenderID == f.PairA && e.ReceiverID == f.PairB
		reversed := e.SenderID == f.PairB && e.ReceiverID == f.PairA
		if !straight && !reversed {
			return false
		}
	}
	return true
}

// Subscription is a live event stream. C is closed when the
// subscription is closed.
type Subscription struct {
	C      <-chan Event
	cancel func()
}

// NewSubscription wraps an event channel and teardown func. cancel
// must be safe to call more than once.
func NewSubscription(c <-chan Event, cancel func()) *Subscription {
	return &Subscription{C: c, cancel: cancel}
}

// Close tears down the subscription and closes C. Safe to call more
// than once.
func (s *Subscription) Close() {
	s.cancel()
}

// Broker fans change events out to subscribers.
type Broker interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, filter Filter) (*Subscription, error)
}
