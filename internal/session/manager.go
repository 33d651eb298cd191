package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/wealthforge/network/internal/domain"
)

// Manager is the session state machine. It consumes the auth provider's
// change stream, reconciles each event against the profile store, and
// publishes identity snapshots. Consumers never read identity by
// reference; they hold a subscription or call Current.
//
// Reconciliation is asynchronous: a new auth event may arrive while a
// previous pass is still fetching. Each pass carries a generation
// number and a pass whose generation has been superseded discards its
// result instead of applying it, so a slow older pass can never
// overwrite a newer identity.
type Manager struct {
	auth     AuthProvider
	profiles ProfileStore
	notifier Notifier

	mu         sync.Mutex
	state      State
	identity   *Identity
	loading    bool
	generation uint64

	nextSubID int
	subs      map[int]chan Snapshot
}

// NewManager creates a manager in the Initializing state. notifier may
// be nil.
func NewManager(auth AuthProvider, profiles ProfileStore, notifier Notifier) *Manager {
	return &Manager{
		auth:     auth,
		profiles: profiles,
		notifier: notifier,
		state:    StateInitializing,
		loading:  true,
		subs:     make(map[int]chan Snapshot),
	}
}

// Run performs the initial session check and then processes auth events
// until ctx is cancelled or the stream closes. Events are read serially
// but each reconciliation pass runs concurrently with the loop.
func (m *Manager) Run(ctx context.Context) error {
	events, cancel, err := m.auth.Changes(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to auth changes: %w", err)
	}
	defer cancel()

	current, err := m.auth.CurrentSession(ctx)
	if err != nil {
		slog.Warn("initial session check failed", "error", err)
		current = nil
	}
	m.dispatch(ctx, current)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			m.dispatch(ctx, event.Session)
		}
	}
}

// Subscribe returns a snapshot stream and a cancel function. The
// current snapshot is delivered immediately; afterwards the channel
// always carries the most recent state, conflating intermediate
// snapshots a slow consumer missed.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	ch := make(chan Snapshot, 1)
	ch <- m.snapshotLocked()
	m.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Current returns the present snapshot.
func (m *Manager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Login forwards credentials to the auth provider. Identity is not
// assigned here; the provider's change stream drives reconciliation.
// Failures are surfaced to the notifier and returned to the caller.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	if _, err := m.auth.SignIn(ctx, email, password); err != nil {
		m.notify(fmt.Sprintf("Sign in failed: %v", err))
		return err
	}
	return nil
}

// SignUp registers a new account with the auth provider.
func (m *Manager) SignUp(ctx context.Context, email, displayName, password string) error {
	if err := m.auth.SignUp(ctx, email, displayName, password); err != nil {
		m.notify(fmt.Sprintf("Sign up failed: %v", err))
		return err
	}
	return nil
}

// Logout asks the provider to end the session. The identity is cleared
// reactively when the resulting signed-out event arrives.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.auth.SignOut(ctx); err != nil {
		m.notify(fmt.Sprintf("Sign out failed: %v", err))
		return err
	}
	return nil
}

// dispatch starts a reconciliation pass for one auth event.
func (m *Manager) dispatch(ctx context.Context, current *Session) {
	m.mu.Lock()
	m.generation++
	gen := m.generation

	if current == nil {
		m.state = StateUnauthenticated
		m.identity = nil
		m.loading = false
		m.publishLocked()
		m.mu.Unlock()
		return
	}

	m.state = StateProfileResolving
	m.loading = true
	m.publishLocked()
	m.mu.Unlock()

	go m.reconcile(ctx, gen, current)
}

// reconcile resolves a session to an identity. A missing profile record
// is auto-provisioned; any other profile I/O failure degrades to a
// minimal identity rather than signing the user out, because the
// session itself is still valid.
func (m *Manager) reconcile(ctx context.Context, gen uint64, current *Session) {
	profile, err := m.profiles.GetProfile(ctx, current.UserID)
	switch {
	case err == nil:
		m.apply(gen, StateAuthenticated, identityFromProfile(profile))

	case errors.Is(err, domain.ErrNotFound):
		provisioned := &domain.Profile{
			ID:          current.UserID,
			Email:       current.Email,
			DisplayName: displayNameFor(current),
			Status:      domain.ProfileStatusActive,
		}
		if createErr := m.profiles.CreateProfile(ctx, provisioned); createErr != nil {
			slog.Warn("profile auto-provision failed", "user_id", current.UserID, "error", createErr)
			m.fallBack(gen, current)
			return
		}
		m.apply(gen, StateAuthenticated, identityFromProfile(provisioned))

	default:
		slog.Warn("profile fetch failed", "user_id", current.UserID, "error", err)
		m.fallBack(gen, current)
	}
}

// fallBack exposes a degraded identity built from the session alone:
// no avatar, never an admin.
func (m *Manager) fallBack(gen uint64, current *Session) {
	if !m.apply(gen, StateProfileCreationFallback, nil) {
		return
	}
	name := displayNameFor(current)
	m.apply(gen, StateAuthenticated, &Identity{
		ID:          current.UserID,
		Email:       current.Email,
		DisplayName: name,
		IsAdmin:     false,
		Initials:    Initials(name, current.Email),
	})
}

// apply installs the result of a reconciliation pass unless a newer
// pass has started since. Returns whether the pass was still current.
func (m *Manager) apply(gen uint64, state State, identity *Identity) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		slog.Debug("discarding superseded reconciliation", "generation", gen, "current", m.generation)
		return false
	}

	m.state = state
	m.identity = identity
	m.loading = state != StateAuthenticated && state != StateUnauthenticated
	m.publishLocked()
	return true
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{State: m.state, Identity: m.identity, Loading: m.loading}
}

// publishLocked conflates: a full subscriber channel is drained of its
// stale snapshot so the latest one always fits.
func (m *Manager) publishLocked() {
	snap := m.snapshotLocked()
	for _, ch := range m.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (m *Manager) notify(message string) {
	if m.notifier != nil {
		m.notifier.Notify(message)
	}
}

func identityFromProfile(profile *domain.Profile) *Identity {
	return &Identity{
		ID:          profile.ID,
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		IsAdmin:     profile.IsAdmin,
		AvatarRef:   profile.AvatarRef,
		Initials:    Initials(profile.DisplayName, profile.Email),
	}
}

func displayNameFor(current *Session) string {
	if current.DisplayName != "" {
		return current.DisplayName
	}
	if at := strings.IndexByte(current.Email, '@'); at > 0 {
		return current.Email[:at]
	}
	return current.Email
}
