package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProfileStatus is the moderation state of an account.
type ProfileStatus string

const (
	ProfileStatusActive    ProfileStatus = "active"
	ProfileStatusSuspended ProfileStatus = "suspended"
)

// Profile is the persisted per-user record. It doubles as the auth
// principal: the password hash lives here, everything else is public
// profile metadata keyed by the same id.
type Profile struct {
	ID           uuid.UUID
	Email        string
	DisplayName  string
	AvatarRef    *string
	IsAdmin      bool
	Status       ProfileStatus
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfileRepository defines persistence operations for profiles.
type ProfileRepository interface {
	Create(ctx context.Context, profile *Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	Update(ctx context.Context, profile *Profile) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status ProfileStatus) error
	List(ctx context.Context) ([]Profile, error)
}
