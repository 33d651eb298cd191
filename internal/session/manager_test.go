package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/wealthforge/network/internal/domain"
	"github.com/wealthforge/network/internal/session"
)

type fakeAuth struct {
	mu      sync.Mutex
	current *session.Session
	events  chan session.Event

	signInErr  error
	signOutErr error
}

func newFakeAuth(current *session.Session) *fakeAuth {
	return &fakeAuth{current: current, events: make(chan session.Event, 8)}
}

func (f *fakeAuth) SignIn(_ context.Context, email, _ string) (*session.Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	s := &session.Session{UserID: uuid.New(), Email: email}
	f.emit(s)
	return s, nil
}

func (f *fakeAuth) SignUp(context.Context, string, string, string) error { return nil }

func (f *fakeAuth) SignOut(context.Context) error {
	if f.signOutErr != nil {
		return f.signOutErr
	}
	f.emit(nil)
	return nil
}

func (f *fakeAuth) CurrentSession(context.Context) (*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

func (f *fakeAuth) Changes(context.Context) (<-chan session.Event, func(), error) {
	return f.events, func() {}, nil
}

func (f *fakeAuth) emit(s *session.Session) {
	f.mu.Lock()
	f.current = s
	f.mu.Unlock()
	f.events <- session.Event{Session: s}
}

type fakeProfiles struct {
	mu      sync.Mutex
	records map[uuid.UUID]*domain.Profile

	getErr    error
	createErr error
	getGate   chan struct{} // when set, GetProfile blocks until closed
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{records: make(map[uuid.UUID]*domain.Profile)}
}

func (f *fakeProfiles) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	if f.getGate != nil {
		select {
		case <-f.getGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeProfiles) CreateProfile(_ context.Context, profile *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copied := *profile
	f.records[profile.ID] = &copied
	return nil
}

func (f *fakeProfiles) has(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[id]
	return ok
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.mu.Lock()
	n.messages = append(n.messages, message)
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func startManager(t *testing.T, auth session.AuthProvider, profiles session.ProfileStore) *session.Manager {
	t.Helper()
	m := session.NewManager(auth, profiles, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go m.Run(ctx)
	return m
}

func waitForState(t *testing.T, m *session.Manager, want func(session.Snapshot) bool) session.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := m.Current()
		if want(snap) {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state, last snapshot: %+v", m.Current())
	return session.Snapshot{}
}

func authenticated(snap session.Snapshot) bool {
	return snap.State == session.StateAuthenticated && !snap.Loading
}

func TestManager_NoSessionBecomesUnauthenticated(t *testing.T) {
	m := startManager(t, newFakeAuth(nil), newFakeProfiles())

	snap := waitForState(t, m, func(s session.Snapshot) bool {
		return s.State == session.StateUnauthenticated
	})
	if snap.Identity != nil {
		t.Fatalf("expected nil identity, got %+v", snap.Identity)
	}
	if snap.Loading {
		t.Fatal("expected loading to be cleared")
	}
}

func TestManager_ExistingProfileResolvesIdentity(t *testing.T) {
	userID := uuid.New()
	profiles := newFakeProfiles()
	avatar := "avatars/1.png"
	profiles.records[userID] = &domain.Profile{
		ID:          userID,
		Email:       "ana@example.com",
		DisplayName: "Ana Pop",
		IsAdmin:     true,
		AvatarRef:   &avatar,
	}
	auth := newFakeAuth(&session.Session{UserID: userID, Email: "ana@example.com"})

	m := startManager(t, auth, profiles)

	snap := waitForState(t, m, authenticated)
	id := snap.Identity
	if id == nil || id.ID != userID {
		t.Fatalf("unexpected identity %+v", id)
	}
	if id.DisplayName != "Ana Pop" || !id.IsAdmin {
		t.Fatalf("profile fields not carried over: %+v", id)
	}
	if id.Initials != "AP" {
		t.Fatalf("expected initials AP, got %q", id.Initials)
	}
	if id.AvatarRef == nil || *id.AvatarRef != avatar {
		t.Fatalf("expected avatar %q, got %v", avatar, id.AvatarRef)
	}
}

func TestManager_AutoProvisionsMissingProfile(t *testing.T) {
	userID := uuid.New()
	profiles := newFakeProfiles()
	auth := newFakeAuth(&session.Session{UserID: userID, Email: "new@example.com"})

	m := startManager(t, auth, profiles)

	snap := waitForState(t, m, authenticated)
	if !profiles.has(userID) {
		t.Fatal("expected a profile record to be created for the new session")
	}
	if snap.Identity.DisplayName != "new" {
		t.Fatalf("expected display name from email local part, got %q", snap.Identity.DisplayName)
	}
}

func TestManager_ProfileFetchFailureDegradesIdentity(t *testing.T) {
	userID := uuid.New()
	profiles := newFakeProfiles()
	profiles.getErr = errors.New("datastore unavailable")
	auth := newFakeAuth(&session.Session{
		UserID:      userID,
		Email:       "deg@example.com",
		DisplayName: "Degraded User",
		IsAdmin:     true,
	})

	m := startManager(t, auth, profiles)

	snap := waitForState(t, m, authenticated)
	id := snap.Identity
	if id == nil || id.ID != userID {
		t.Fatalf("profile failure must not sign the user out, got %+v", snap)
	}
	if id.IsAdmin {
		t.Fatal("degraded identity must never be an admin")
	}
	if id.AvatarRef != nil {
		t.Fatal("degraded identity must have no avatar")
	}
}

func TestManager_ProvisionFailureDegradesIdentity(t *testing.T) {
	userID := uuid.New()
	profiles := newFakeProfiles()
	profiles.createErr = errors.New("insert rejected")
	auth := newFakeAuth(&session.Session{UserID: userID, Email: "fallback@example.com"})

	m := startManager(t, auth, profiles)

	snap := waitForState(t, m, authenticated)
	if snap.Identity == nil || snap.Identity.ID != userID {
		t.Fatalf("expected degraded identity for the session, got %+v", snap)
	}
	if profiles.has(userID) {
		t.Fatal("no record should exist after a failed provision")
	}
}

func TestManager_SignOutClearsIdentity(t *testing.T) {
	userID := uuid.New()
	profiles := newFakeProfiles()
	auth := newFakeAuth(&session.Session{UserID: userID, Email: "out@example.com"})

	m := startManager(t, auth, profiles)
	waitForState(t, m, authenticated)

	if err := m.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	snap := waitForState(t, m, func(s session.Snapshot) bool {
		return s.State == session.StateUnauthenticated
	})
	if snap.Identity != nil {
		t.Fatalf("expected nil identity after sign-out, got %+v", snap.Identity)
	}
}

func TestManager_SupersededReconciliationIsDiscarded(t *testing.T) {
	userID := uuid.New()
	profiles := newFakeProfiles()
	profiles.records[userID] = &domain.Profile{ID: userID, Email: "slow@example.com", DisplayName: "Slow"}
	gate := make(chan struct{})
	profiles.getGate = gate
	auth := newFakeAuth(&session.Session{UserID: userID, Email: "slow@example.com"})

	m := startManager(t, auth, profiles)
	waitForState(t, m, func(s session.Snapshot) bool {
		return s.State == session.StateProfileResolving
	})

	// Sign out while the first pass is still blocked on the fetch, then
	// let the stale pass finish. It must not reinstate the identity.
	auth.emit(nil)
	waitForState(t, m, func(s session.Snapshot) bool {
		return s.State == session.StateUnauthenticated
	})
	close(gate)

	time.Sleep(50 * time.Millisecond)
	snap := m.Current()
	if snap.State != session.StateUnauthenticated || snap.Identity != nil {
		t.Fatalf("stale reconciliation overwrote newer state: %+v", snap)
	}
}

func TestManager_SubscribeDeliversCurrentAndUpdates(t *testing.T) {
	userID := uuid.New()
	profiles := newFakeProfiles()
	profiles.records[userID] = &domain.Profile{ID: userID, Email: "sub@example.com", DisplayName: "Sub"}
	auth := newFakeAuth(nil)

	m := startManager(t, auth, profiles)
	waitForState(t, m, func(s session.Snapshot) bool {
		return s.State == session.StateUnauthenticated
	})

	updates, cancel := m.Subscribe()
	defer cancel()

	first := <-updates
	if first.State != session.StateUnauthenticated {
		t.Fatalf("expected current state on subscribe, got %+v", first)
	}

	auth.emit(&session.Session{UserID: userID, Email: "sub@example.com"})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-updates:
			if authenticated(snap) && snap.Identity != nil && snap.Identity.ID == userID {
				return
			}
		case <-deadline:
			t.Fatal("subscriber never observed the authenticated snapshot")
		}
	}
}

func TestManager_LoginFailureNotifiesAndReturns(t *testing.T) {
	auth := newFakeAuth(nil)
	auth.signInErr = domain.ErrUnauthorized
	notifier := &recordingNotifier{}
	m := session.NewManager(auth, newFakeProfiles(), notifier)

	err := m.Login(context.Background(), "who@example.com", "bad")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected the provider error back, got %v", err)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected one notification, got %d", notifier.count())
	}
}

func TestInitials(t *testing.T) {
	tests := []struct {
		name        string
		displayName string
		email       string
		want        string
	}{
		{"two words", "Oliviu Admin", "oliviu@namebox.ro", "OA"},
		{"three words", "Ana Maria Pop", "ana@example.com", "AM"},
		{"single word", "madalina", "m@example.com", "MA"},
		{"single letter word", "x", "x@example.com", "X"},
		{"empty name", "", "carol@example.com", "CA"},
		{"whitespace name", "   ", "dan@example.com", "DA"},
		{"empty everything", "", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := session.Initials(tc.displayName, tc.email); got != tc.want {
				t.Fatalf("Initials(%q, %q) = %q, want %q", tc.displayName, tc.email, got, tc.want)
			}
		})
	}
}
