package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/wealthforge/network/internal/domain"
	"github.com/wealthforge/network/internal/feed"
)

// ProjectInput is the submission payload for a new project listing.
type ProjectInput struct {
	Title          string
	Description    string
	Category       string
	Location       string
	Budget         string
	RequiredSkills []string
}

// ProjectService handles project submission, browsing, and moderation.
type ProjectService struct {
	projects domain.ProjectRepository
	broker   feed.Broker
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projects domain.ProjectRepository, broker feed.Broker) *ProjectService {
	return &ProjectService{projects: projects, broker: broker}
}

// Submit creates a project listing for the given creator. Listings from
// moderators go live immediately; everyone else's start pending.
func (s *ProjectService) Submit(ctx context.Context, creator *domain.Profile, input ProjectInput) (*domain.Project, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Title == "" || input.Description == "" {
		return nil, fmt.Errorf("%w: title and description are required", domain.ErrInvalidInput)
	}
	if input.Category == "" {
		return nil, fmt.Errorf("%w: category is required", domain.ErrInvalidInput)
	}

	skills := make([]string, 0, len(input.RequiredSkills))
	for _, name := range input.RequiredSkills {
		if name = strings.TrimSpace(name); name != "" {
			skills = append(skills, name)
		}
	}

	status := domain.ProjectStatusPending
	if creator.IsAdmin {
		status = domain.ProjectStatusApproved
	}

	project := &domain.Project{
		Title:          input.Title,
		Description:    input.Description,
		Category:       input.Category,
		Location:       input.Location,
		Budget:         input.Budget,
		RequiredSkills: skills,
		CreatorID:      creator.ID,
		CreatorName:    creator.DisplayName,
		Status:         status,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	s.publish(ctx, feed.OpInsert, project.ID)
	return project, nil
}

// Browse returns approved listings matching the optional category,
// free-text, and featured filters.
func (s *ProjectService) Browse(ctx context.Context, category, query string, featuredOnly bool) ([]domain.Project, error) {
	return s.projects.List(ctx, domain.ProjectFilter{
		Status:       domain.ProjectStatusApproved,
		Category:     category,
		Query:        query,
		FeaturedOnly: featuredOnly,
	})
}

// Mine returns every listing the given profile created, any status.
func (s *ProjectService) Mine(ctx context.Context, creatorID uuid.UUID) ([]domain.Project, error) {
	return s.projects.List(ctx, domain.ProjectFilter{CreatorID: creatorID})
}

// Get returns a single project. Listings that are not approved are only
// visible to their creator and to moderators; everyone else gets
// ErrNotFound so unapproved listings aren't discoverable.
func (s *ProjectService) Get(ctx context.Context, viewer *domain.Profile, id uuid.UUID) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.Status != domain.ProjectStatusApproved {
		if viewer == nil || (!viewer.IsAdmin && viewer.ID != project.CreatorID) {
			return nil, domain.ErrNotFound
		}
	}
	return project, nil
}

// ListAll returns every listing regardless of status. Admin only.
func (s *ProjectService) ListAll(ctx context.Context, actor *domain.Profile) ([]domain.Project, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}
	return s.projects.List(ctx, domain.ProjectFilter{})
}

// Approve transitions a pending project to approved. Admin only.
func (s *ProjectService) Approve(ctx context.Context, actor *domain.Profile, id uuid.UUID) error {
	return s.moderate(ctx, actor, id, domain.ProjectStatusApproved)
}

// Reject transitions a pending project to rejected. Admin only.
func (s *ProjectService) Reject(ctx context.Context, actor *domain.Profile, id uuid.UUID) error {
	return s.moderate(ctx, actor, id, domain.ProjectStatusRejected)
}

func (s *ProjectService) moderate(ctx context.Context, actor *domain.Profile, id uuid.UUID, status domain.ProjectStatus) error {
	if !actor.IsAdmin {
		return domain.ErrForbidden
	}
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return err
	}
	// Moderation is a one-way gate out of pending.
	if project.Status != domain.ProjectStatusPending {
		return fmt.Errorf("%w: listing has already been moderated", domain.ErrInvalidInput)
	}
	if err := s.projects.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	s.publish(ctx, feed.OpUpdate, id)
	return nil
}

// ToggleFeatured flips whether a listing is highlighted on the landing
// page. Admin only; only approved listings can be featured.
func (s *ProjectService) ToggleFeatured(ctx context.Context, actor *domain.Profile, id uuid.UUID) (*domain.Project, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !project.Featured && project.Status != domain.ProjectStatusApproved {
		return nil, fmt.Errorf("%w: only approved listings can be featured", domain.ErrInvalidInput)
	}
	project.Featured = !project.Featured
	if err := s.projects.UpdateFeatured(ctx, id, project.Featured); err != nil {
		return nil, err
	}
	s.publish(ctx, feed.OpUpdate, id)
	return project, nil
}

// Delete removes a project. Allowed for the creator and for moderators.
func (s *ProjectService) Delete(ctx context.Context, actor *domain.Profile, id uuid.UUID) error {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin && actor.ID != project.CreatorID {
		return domain.ErrForbidden
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, feed.OpDelete, id)
	return nil
}

func (s *ProjectService) publish(ctx context.Context, op feed.Op, id uuid.UUID) {
	err := s.broker.Publish(ctx, feed.Event{
		Relation: "projects",
		Op:       op,
		RowID:    id.String(),
	})
	if err != nil {
		slog.Error("publish project event", "error", err, "op", string(op))
	}
}
