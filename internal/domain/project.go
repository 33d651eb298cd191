package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProjectStatus is the moderation state of a project listing.
type ProjectStatus string

const (
	ProjectStatusPending  ProjectStatus = "pending"
	ProjectStatusApproved ProjectStatus = "approved"
	ProjectStatusRejected ProjectStatus = "rejected"
)

// Project is a business project listing. Required skills are stored
// normalized (skills / project_required_skills) and loaded as names.
type Project struct {
	ID             uuid.UUID
	Title          string
	Description    string
	Category       string
	Location       string
	Budget         string
	RequiredSkills []string
	CreatorID      uuid.UUID
	CreatorName    string
	Status         ProjectStatus
	Featured       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProjectFilter narrows a project listing. Zero values mean "no filter".
type ProjectFilter struct {
	Status       ProjectStatus
	Category     string
	Query        string
	CreatorID    uuid.UUID
	FeaturedOnly bool
}

// ProjectRepository defines persistence operations for projects and
// their required skills.
type ProjectRepository interface {
	// Create inserts the project and its required skills, creating any
	// skill names that don't exist yet.
	Create(ctx context.Context, project *Project) error

	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	List(ctx context.Context, filter ProjectFilter) ([]Project, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status ProjectStatus) error
	UpdateFeatured(ctx context.Context, id uuid.UUID, featured bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByCreator(ctx context.Context, creatorID uuid.UUID) (int, error)
}
