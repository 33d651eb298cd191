package conversation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/wealthforge/network/internal/conversation"
	"github.com/wealthforge/network/internal/domain"
	"github.com/wealthforge/network/internal/feed"
)

type fakeStore struct {
	mu        sync.Mutex
	messages  []domain.Message
	clock     time.Time
	listCalls int
	sendErr   error
	listErr   error
	readIDs   []uuid.UUID

	// listGate, when non-nil, blocks ListConversation calls for
	// gatePeer until closed.
	listGate chan struct{}
	gatePeer uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{clock: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeStore) ListConversation(ctx context.Context, a, b uuid.UUID) ([]domain.Message, error) {
	f.mu.Lock()
	gate := f.listGate
	gated := gate != nil && (a == f.gatePeer || b == f.gatePeer)
	f.mu.Unlock()
	if gated {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Message
	for _, m := range f.messages {
		straight := m.SenderID == a && m.ReceiverID == b
		reversed := m.SenderID == b && m.ReceiverID == a
		if straight || reversed {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) SendMessage(_ context.Context, senderID, receiverID uuid.UUID, content string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.clock = f.clock.Add(time.Second)
	m := domain.Message{
		ID:         uuid.New(),
		Content:    content,
		SenderID:   senderID,
		ReceiverID: receiverID,
		CreatedAt:  f.clock,
	}
	f.messages = append(f.messages, m)
	return &m, nil
}

func (f *fakeStore) MarkMessageRead(_ context.Context, messageID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readIDs = append(f.readIDs, messageID)
	return nil
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

type listNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *listNotifier) Notify(message string) {
	n.mu.Lock()
	n.messages = append(n.messages, message)
	n.mu.Unlock()
}

func (n *listNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func newTestSyncer(t *testing.T) (*conversation.Syncer, *fakeStore, *feed.MemoryBroker, *listNotifier) {
	t.Helper()
	store := newFakeStore()
	broker := feed.NewMemoryBroker()
	notifier := &listNotifier{}
	syncer := conversation.NewSyncer(store, broker, notifier)
	t.Cleanup(syncer.Close)
	return syncer, store, broker, notifier
}

func TestSyncer_HistoryInertWithoutParticipants(t *testing.T) {
	syncer, store, _, _ := newTestSyncer(t)
	ctx := context.Background()

	history, err := syncer.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d", len(history))
	}

	syncer.SetSelf(uuid.New())
	if _, err := syncer.History(ctx); err != nil {
		t.Fatalf("History with self only: %v", err)
	}

	if store.calls() != 0 {
		t.Fatalf("inert history must not query the store, got %d calls", store.calls())
	}
}

func TestSyncer_SendThenHistory(t *testing.T) {
	syncer, _, _, _ := newTestSyncer(t)
	ctx := context.Background()

	u1 := uuid.New()
	u2 := uuid.New()
	syncer.SetSelf(u1)
	if err := syncer.SetPeer(ctx, u2); err != nil {
		t.Fatalf("SetPeer: %v", err)
	}

	if err := syncer.Send(ctx, "Let's talk"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	history, err := syncer.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 message, got %d", len(history))
	}
	got := history[0]
	if got.Content != "Let's talk" || got.SenderID != u1 || got.ReceiverID != u2 {
		t.Fatalf("unexpected message %+v", got)
	}
}

func TestSyncer_BlankSendIsNoOp(t *testing.T) {
	syncer, store, _, _ := newTestSyncer(t)
	ctx := context.Background()

	u1, u2 := uuid.New(), uuid.New()
	syncer.SetSelf(u1)
	if err := syncer.SetPeer(ctx, u2); err != nil {
		t.Fatalf("SetPeer: %v", err)
	}
	if err := syncer.Send(ctx, "warmup"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := syncer.History(ctx); err != nil {
		t.Fatalf("History: %v", err)
	}
	callsBefore := store.calls()

	for _, content := range []string{"", "   ", "\t\n"} {
		if err := syncer.Send(ctx, content); err != nil {
			t.Fatalf("Send(%q): %v", content, err)
		}
	}

	history, err := syncer.History(ctx)
	if err != nil {
		t.Fatalf("History after blanks: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("blank sends must not create rows, got %d", len(history))
	}
	if store.calls() != callsBefore {
		t.Fatal("blank sends must not invalidate the cache")
	}
}

func TestSyncer_SendInvalidatesCache(t *testing.T) {
	syncer, store, _, _ := newTestSyncer(t)
	ctx := context.Background()

	u1, u2 := uuid.New(), uuid.New()
	syncer.SetSelf(u1)
	if err := syncer.SetPeer(ctx, u2); err != nil {
		t.Fatalf("SetPeer: %v", err)
	}

	if err := syncer.Send(ctx, "one"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	before, err := syncer.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}

	if err := syncer.Send(ctx, "two"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	after, err := syncer.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(after) != len(before)+1 {
		t.Fatalf("expected exactly one more row, got %d -> %d", len(before), len(after))
	}
	if store.calls() != 2 {
		t.Fatalf("expected a fresh fetch per invalidation, got %d calls", store.calls())
	}
}

func TestSyncer_SendFailureKeepsPriorState(t *testing.T) {
	syncer, store, _, notifier := newTestSyncer(t)
	ctx := context.Background()

	u1, u2 := uuid.New(), uuid.New()
	syncer.SetSelf(u1)
	if err := syncer.SetPeer(ctx, u2); err != nil {
		t.Fatalf("SetPeer: %v", err)
	}
	if err := syncer.Send(ctx, "kept"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := syncer.History(ctx); err != nil {
		t.Fatalf("History: %v", err)
	}
	callsBefore := store.calls()

	store.mu.Lock()
	store.sendErr = errors.New("backend down")
	store.mu.Unlock()

	if err := syncer.Send(ctx, "lost"); err == nil {
		t.Fatal("expected send error")
	}
	if notifier.count() != 1 {
		t.Fatalf("expected one notification, got %d", notifier.count())
	}

	history, err := syncer.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Content != "kept" {
		t.Fatalf("prior state must be preserved, got %+v", history)
	}
	if store.calls() != callsBefore {
		t.Fatal("failed send must not invalidate the cache")
	}
}

func TestSyncer_FetchFailureReturnsStaleView(t *testing.T) {
	syncer, store, _, notifier := newTestSyncer(t)
	ctx := context.Background()

	u1, u2 := uuid.New(), uuid.New()
	syncer.SetSelf(u1)
	if err := syncer.SetPeer(ctx, u2); err != nil {
		t.Fatalf("SetPeer: %v", err)
	}
	if err := syncer.Send(ctx, "good"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := syncer.History(ctx); err != nil {
		t.Fatalf("History: %v", err)
	}

	if err := syncer.Send(ctx, "newer"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	store.mu.Lock()
	store.listErr = errors.New("backend down")
	store.mu.Unlock()

	history, err := syncer.History(ctx)
	if err == nil {
		t.Fatal("expected fetch error")
	}
	if len(history) != 1 || history[0].Content != "good" {
		t.Fatalf("expected last known-good view, got %+v", history)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected one notification, got %d", notifier.count())
	}
}

func TestSyncer_MarkAsRead(t *testing.T) {
	syncer, store, _, _ := newTestSyncer(t)
	ctx := context.Background()

	syncer.SetSelf(uuid.New())
	id := uuid.New()
	if err := syncer.MarkAsRead(ctx, id); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.readIDs) != 1 || store.readIDs[0] != id {
		t.Fatalf("unexpected read ids %v", store.readIDs)
	}
}

func TestSyncer_PeerSwitchesLeaveOneSubscription(t *testing.T) {
	syncer, _, broker, _ := newTestSyncer(t)
	ctx := context.Background()

	syncer.SetSelf(uuid.New())
	for range 5 {
		if err := syncer.SetPeer(ctx, uuid.New()); err != nil {
			t.Fatalf("SetPeer: %v", err)
		}
	}

	if got := broker.SubscriberCount(); got != 1 {
		t.Fatalf("expected exactly one live subscription, got %d", got)
	}

	syncer.Close()
	if got := broker.SubscriberCount(); got != 0 {
		t.Fatalf("expected no subscriptions after close, got %d", got)
	}
}

func TestSyncer_ChangeEventTriggersRefetch(t *testing.T) {
	syncer, store, broker, _ := newTestSyncer(t)
	ctx := context.Background()

	u1, u2 := uuid.New(), uuid.New()
	syncer.SetSelf(u1)
	if err := syncer.SetPeer(ctx, u2); err != nil {
		t.Fatalf("SetPeer: %v", err)
	}

	// The counterpart writes out of band, then the feed reports it.
	incoming, err := store.SendMessage(ctx, u2, u1, "from the other side")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	err = broker.Publish(ctx, feed.Event{
		Relation:   "messages",
		Op:         feed.OpInsert,
		RowID:      incoming.ID.String(),
		SenderID:   u2.String(),
		ReceiverID: u1.String(),
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		history, err := syncer.History(ctx)
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		if len(history) == 1 && history[0].Content == "from the other side" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("change event never refreshed the view")
}

func TestSyncer_StaleFetchAfterPeerSwitchIsDiscarded(t *testing.T) {
	syncer, store, _, _ := newTestSyncer(t)
	ctx := context.Background()

	u1 := uuid.New()
	slowPeer := uuid.New()
	fastPeer := uuid.New()
	syncer.SetSelf(u1)

	if _, err := store.SendMessage(ctx, slowPeer, u1, "old conversation"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if _, err := store.SendMessage(ctx, fastPeer, u1, "new conversation"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	gate := make(chan struct{})
	store.mu.Lock()
	store.listGate = gate
	store.gatePeer = slowPeer
	store.mu.Unlock()

	if err := syncer.SetPeer(ctx, slowPeer); err != nil {
		t.Fatalf("SetPeer slow: %v", err)
	}
	slowDone := make(chan struct{})
	go func() {
		defer close(slowDone)
		syncer.History(ctx)
	}()

	// Switch away while the slow fetch is still blocked, load the new
	// conversation, then let the stale response arrive.
	if err := syncer.SetPeer(ctx, fastPeer); err != nil {
		t.Fatalf("SetPeer fast: %v", err)
	}
	history, err := syncer.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Content != "new conversation" {
		t.Fatalf("unexpected history %+v", history)
	}

	close(gate)
	<-slowDone

	history, err = syncer.History(ctx)
	if err != nil {
		t.Fatalf("History after stale resolve: %v", err)
	}
	if len(history) != 1 || history[0].Content != "new conversation" {
		t.Fatalf("stale fetch overwrote newer state: %+v", history)
	}
}
