// Package session maintains the current-identity state for a client.
// It owns exactly one identity value (or none), keeps it consistent
// with the auth provider's live session, and exposes it to consumers
// through a publish/subscribe snapshot stream.
package session

import (
	"context"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/wealthforge/network/internal/domain"
)

// State names the manager's position in the session lifecycle.
type State string

const (
	StateInitializing            State = "initializing"
	StateUnauthenticated         State = "unauthenticated"
	StateProfileResolving        State = "profile_resolving"
	StateAuthenticated           State = "authenticated"
	StateProfileCreationFallback State = "profile_creation_fallback"
)

// Session is an authenticated session issued by the auth provider.
type Session struct {
	UserID      uuid.UUID
	Email       string
	DisplayName string
	IsAdmin     bool
	Token       string
}

// Event is one change on the auth-state stream. A nil Session means
// signed out.
type Event struct {
	Session *Session
}

// AuthProvider is the external authentication boundary. Implementations
// must deliver Changes events serially, in the order they occurred.
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, displayName, password string) error
	SignOut(ctx context.Context) error
	CurrentSession(ctx context.Context) (*Session, error)
	Changes(ctx context.Context) (<-chan Event, func(), error)
}

// ProfileStore is the profile-record boundary used during
// reconciliation. GetProfile returns domain.ErrNotFound when no record
// exists for the id.
type ProfileStore interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	CreateProfile(ctx context.Context, profile *domain.Profile) error
}

// Notifier receives user-visible non-fatal messages.
type Notifier interface {
	Notify(message string)
}

// Identity is the resolved current-user view combining session and
// profile data.
type Identity struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	IsAdmin     bool
	AvatarRef   *string
	Initials    string
}

// Snapshot is the externally visible auth state at a point in time.
// Identity is nil unless State is Authenticated; Loading is true while
// a reconciliation pass is in flight.
type Snapshot struct {
	State    State
	Identity *Identity
	Loading  bool
}

// Initials derives an at-most-two-character uppercase monogram. Two or
// more words in the display name yield their first letters; a single
// word yields its first two letters; with no usable name the first two
// characters of the email are used.
func Initials(displayName, email string) string {
	words := strings.Fields(displayName)
	switch {
	case len(words) >= 2:
		return upperPrefix(words[0], 1) + upperPrefix(words[1], 1)
	case len(words) == 1:
		return upperPrefix(words[0], 2)
	default:
		return upperPrefix(strings.TrimSpace(email), 2)
	}
}

func upperPrefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	for i, r := range runes {
		runes[i] = unicode.ToUpper(r)
	}
	return string(runes)
}
