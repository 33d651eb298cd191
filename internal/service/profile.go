package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wealthforge/network/internal/domain"
)

// ProfileService handles profile reads, self-service updates, and the
// admin user listing.
type ProfileService struct {
	profiles domain.ProfileRepository
	projects domain.ProjectRepository
}

// NewProfileService creates a new ProfileService.
func NewProfileService(profiles domain.ProfileRepository, projects domain.ProjectRepository) *ProfileService {
	return &ProfileService{profiles: profiles, projects: projects}
}

// Get returns a profile by ID.
func (s *ProfileService) Get(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

// UpdateOwn updates the caller's display name and avatar reference.
func (s *ProfileService) UpdateOwn(ctx context.Context, selfID uuid.UUID, displayName string, avatarRef *string) (*domain.Profile, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, fmt.Errorf("%w: display name is required", domain.ErrInvalidInput)
	}

	profile, err := s.profiles.GetByID(ctx, selfID)
	if err != nil {
		return nil, err
	}

	profile.DisplayName = displayName
	profile.AvatarRef = avatarRef
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return profile, nil
}

// UserSummary is a profile with moderation metadata for the admin panel.
type UserSummary struct {
	Profile      domain.Profile
	ProjectCount int
}

// ListUsers returns all profiles with their project counts. Admin only.
func (s *ProfileService) ListUsers(ctx context.Context, actor *domain.Profile) ([]UserSummary, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}

	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	summaries := make([]UserSummary, 0, len(profiles))
	for _, p := range profiles {
		count, err := s.projects.CountByCreator(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("count projects for %s: %w", p.ID, err)
		}
		summaries = append(summaries, UserSummary{Profile: p, ProjectCount: count})
	}
	return summaries, nil
}

// ToggleStatus flips a user between active and suspended. Admin only;
// admins cannot suspend themselves.
func (s *ProfileService) ToggleStatus(ctx context.Context, actor *domain.Profile, id uuid.UUID) (*domain.Profile, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}
	if actor.ID == id {
		return nil, fmt.Errorf("%w: cannot suspend your own account", domain.ErrInvalidInput)
	}

	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := domain.ProfileStatusSuspended
	if profile.Status == domain.ProfileStatusSuspended {
		next = domain.ProfileStatusActive
	}
	if err := s.profiles.UpdateStatus(ctx, id, next); err != nil {
		return nil, err
	}
	profile.Status = next
	return profile, nil
}

// ToggleAdmin grants or revokes a user's moderator access. Admin only;
// admins cannot revoke their own access.
func (s *ProfileService) ToggleAdmin(ctx context.Context, actor *domain.Profile, id uuid.UUID) (*domain.Profile, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}
	if actor.ID == id {
		return nil, fmt.Errorf("%w: cannot change your own admin access", domain.ErrInvalidInput)
	}

	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	profile.IsAdmin = !profile.IsAdmin
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
