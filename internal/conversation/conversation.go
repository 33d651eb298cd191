// Package conversation keeps a live, ascending-ordered view of the
// messages between the local identity and one counterpart. The view is
// cached, invalidated on writes, and refreshed whenever the change feed
// reports activity in the conversation.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/wealthforge/network/internal/domain"
	"github.com/wealthforge/network/internal/feed"
)

// MessageStore is the remote message boundary.
type MessageStore interface {
	ListConversation(ctx context.Context, a, b uuid.UUID) ([]domain.Message, error)
	SendMessage(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*domain.Message, error)
	MarkMessageRead(ctx context.Context, messageID uuid.UUID) error
}

// FeedSource provides filtered change subscriptions.
type FeedSource interface {
	Subscribe(ctx context.Context, filter feed.Filter) (*feed.Subscription, error)
}

// Notifier receives user-visible non-fatal messages.
type Notifier interface {
	Notify(message string)
}

// Syncer synchronizes one conversation at a time. Switching the
// counterpart with SetPeer tears down the previous feed subscription
// before establishing the next, so at most one subscription is live at
// any moment.
//
// Remote failures never clear the view: the last known-good history
// stays displayed and the error is surfaced through the notifier.
type Syncer struct {
	store    MessageStore
	feed     FeedSource
	notifier Notifier

	mu         sync.Mutex
	selfID     uuid.UUID
	peerID     uuid.UUID
	cache      []domain.Message
	cacheValid bool
	fetchGen   uint64
	sub        *feed.Subscription
}

// NewSyncer creates a syncer with no identity and no counterpart.
// notifier may be nil.
func NewSyncer(store MessageStore, feedSource FeedSource, notifier Notifier) *Syncer {
	return &Syncer{store: store, feed: feedSource, notifier: notifier}
}

// SetSelf installs the local identity id. Usually called once per
// sign-in; changing it invalidates the cached history.
func (s *Syncer) SetSelf(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selfID == id {
		return
	}
	s.selfID = id
	s.invalidateLocked()
}

// SetPeer switches the active counterpart. The old subscription is torn
// down first and the cache is dropped; a new subscription is
// established when both ids are present.
func (s *Syncer) SetPeer(ctx context.Context, peerID uuid.UUID) error {
	s.mu.Lock()
	if s.sub != nil {
		s.sub.Close()
		s.sub = nil
	}
	s.peerID = peerID
	s.invalidateLocked()
	self := s.selfID
	s.mu.Unlock()

	if self == uuid.Nil || peerID == uuid.Nil {
		return nil
	}

	sub, err := s.feed.Subscribe(ctx, feed.Filter{
		Relation: "messages",
		PairA:    self.String(),
		PairB:    peerID.String(),
	})
	if err != nil {
		s.notify(fmt.Sprintf("Live updates unavailable: %v", err))
		return fmt.Errorf("subscribe to conversation feed: %w", err)
	}

	s.mu.Lock()
	if s.peerID != peerID || s.selfID != self {
		// Switched again while subscribing.
		s.mu.Unlock()
		sub.Close()
		return nil
	}
	s.sub = sub
	s.mu.Unlock()

	go s.watch(ctx, sub)
	return nil
}

// Close tears down the active subscription, if any.
func (s *Syncer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		s.sub.Close()
		s.sub = nil
	}
}

// History returns the conversation ordered by creation time ascending.
// It is inert, returning an empty slice without querying, when either
// participant id is absent. The result is served from cache when the
// cache is valid.
func (s *Syncer) History(ctx context.Context) ([]domain.Message, error) {
	s.mu.Lock()
	if s.selfID == uuid.Nil || s.peerID == uuid.Nil {
		s.mu.Unlock()
		return []domain.Message{}, nil
	}
	if s.cacheValid {
		out := slices.Clone(s.cache)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	return s.refetch(ctx)
}

// Send creates a message from self to the active counterpart.
// Whitespace-only content is a no-op that leaves the cache untouched.
// On success the cache is invalidated so the next History includes the
// new row; on failure the prior view is preserved.
func (s *Syncer) Send(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	s.mu.Lock()
	self, peer := s.selfID, s.peerID
	s.mu.Unlock()
	if self == uuid.Nil || peer == uuid.Nil {
		return fmt.Errorf("%w: no active conversation", domain.ErrInvalidInput)
	}

	if _, err := s.store.SendMessage(ctx, self, peer, content); err != nil {
		s.notify(fmt.Sprintf("Error sending message: %v", err))
		return err
	}

	s.mu.Lock()
	if s.peerID == peer {
		s.invalidateLocked()
	}
	s.mu.Unlock()
	return nil
}

// MarkAsRead marks a message read. The store only flips the flag when
// the local identity is the receiver, so marking own sent messages is
// an observable no-op.
func (s *Syncer) MarkAsRead(ctx context.Context, messageID uuid.UUID) error {
	if err := s.store.MarkMessageRead(ctx, messageID); err != nil {
		s.notify(fmt.Sprintf("Error updating message: %v", err))
		return err
	}
	s.mu.Lock()
	s.invalidateLocked()
	s.mu.Unlock()
	return nil
}

// watch refetches the full history on every change event until the
// subscription closes.
func (s *Syncer) watch(ctx context.Context, sub *feed.Subscription) {
	for range sub.C {
		if _, err := s.refetch(ctx); err != nil {
			slog.Warn("conversation refetch failed", "error", err)
		}
	}
}

// refetch loads the history from the store. Each fetch carries a
// generation number; a result whose generation was superseded by a
// newer fetch or a peer switch is discarded so slow responses cannot
// overwrite newer state with older data.
func (s *Syncer) refetch(ctx context.Context) ([]domain.Message, error) {
	s.mu.Lock()
	self, peer := s.selfID, s.peerID
	s.fetchGen++
	gen := s.fetchGen
	s.mu.Unlock()

	if self == uuid.Nil || peer == uuid.Nil {
		return []domain.Message{}, nil
	}

	messages, err := s.store.ListConversation(ctx, self, peer)
	if err != nil {
		s.notify(fmt.Sprintf("Error fetching messages: %v", err))
		s.mu.Lock()
		stale := slices.Clone(s.cache)
		s.mu.Unlock()
		return stale, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.fetchGen || s.peerID != peer || s.selfID != self {
		slog.Debug("discarding superseded history fetch", "generation", gen, "current", s.fetchGen)
		return slices.Clone(s.cache), nil
	}
	s.cache = messages
	s.cacheValid = true
	return slices.Clone(s.cache), nil
}

func (s *Syncer) invalidateLocked() {
	s.cache = nil
	s.cacheValid = false
	s.fetchGen++
}

func (s *Syncer) notify(message string) {
	if s.notifier != nil {
		s.notifier.Notify(message)
	}
}
