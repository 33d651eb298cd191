package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wealthforge/network/internal/domain"
)

// ProjectRepository implements domain.ProjectRepository using Postgres.
type ProjectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository creates a new Postgres-backed ProjectRepository.
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{pool: db.pool}
}

const projectColumns = `pr.id, pr.title, pr.description, pr.category, pr.location, pr.budget,
	pr.creator_id, pf.display_name, pr.status, pr.featured, pr.created_at, pr.updated_at`

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	if project.Status == "" {
		project.Status = domain.ProjectStatusPending
	}
	now := time.Now().UTC()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO projects (id, title, description, category, location, budget, creator_id, status, featured, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		project.ID, project.Title, project.Description, project.Category,
		project.Location, project.Budget, project.CreatorID, string(project.Status),
		project.Featured, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}

	for _, name := range project.RequiredSkills {
		var skillID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO skills (name) VALUES ($1)
			 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id`,
			name,
		).Scan(&skillID)
		if err != nil {
			return fmt.Errorf("upsert skill: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO project_required_skills (project_id, skill_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			project.ID, skillID,
		); err != nil {
			return fmt.Errorf("link skill: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	project.CreatedAt = now
	project.UpdatedAt = now
	return nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	p := &domain.Project{}
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT `+projectColumns+`
		 FROM projects pr
		 JOIN profiles pf ON pf.id = pr.creator_id
		 WHERE pr.id = $1`, id,
	).Scan(
		&p.ID, &p.Title, &p.Description, &p.Category, &p.Location, &p.Budget,
		&p.CreatorID, &p.CreatorName, &status, &p.Featured, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query project: %w", err)
	}
	p.Status = domain.ProjectStatus(status)

	skills, err := r.loadSkills(ctx, []uuid.UUID{p.ID})
	if err != nil {
		return nil, err
	}
	p.RequiredSkills = skills[p.ID]
	if p.RequiredSkills == nil {
		p.RequiredSkills = []string{}
	}
	return p, nil
}

func (r *ProjectRepository) List(ctx context.Context, filter domain.ProjectFilter) ([]domain.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects pr
		JOIN profiles pf ON pf.id = pr.creator_id`

	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != "" {
		where = append(where, "pr.status = "+arg(string(filter.Status)))
	}
	if filter.Category != "" {
		where = append(where, "pr.category = "+arg(filter.Category))
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		where = append(where, "(pr.title ILIKE "+arg(pattern)+" OR pr.description ILIKE "+arg(pattern)+")")
	}
	if filter.CreatorID != uuid.Nil {
		where = append(where, "pr.creator_id = "+arg(filter.CreatorID))
	}
	if filter.FeaturedOnly {
		where = append(where, "pr.featured = TRUE")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY pr.created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]domain.Project, 0)
	var ids []uuid.UUID
	for rows.Next() {
		var p domain.Project
		var status string
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Description, &p.Category, &p.Location, &p.Budget,
			&p.CreatorID, &p.CreatorName, &status, &p.Featured, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.Status = domain.ProjectStatus(status)
		p.RequiredSkills = []string{}
		projects = append(projects, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	if len(ids) > 0 {
		skills, err := r.loadSkills(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range projects {
			if names, ok := skills[projects[i].ID]; ok {
				projects[i].RequiredSkills = names
			}
		}
	}

	return projects, nil
}

func (r *ProjectRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ProjectStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE projects SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update project status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProjectRepository) UpdateFeatured(ctx context.Context, id uuid.UUID, featured bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE projects SET featured = $1, updated_at = $2 WHERE id = $3`,
		featured, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update project featured: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProjectRepository) CountByCreator(ctx context.Context, creatorID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM projects WHERE creator_id = $1`, creatorID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return count, nil
}

func (r *ProjectRepository) loadSkills(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT prs.project_id, s.name
		 FROM project_required_skills prs
		 JOIN skills s ON s.id = prs.skill_id
		 WHERE prs.project_id = ANY($1)
		 ORDER BY s.name ASC`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("load skills: %w", err)
	}
	defer rows.Close()

	skills := make(map[uuid.UUID][]string)
	for rows.Next() {
		var projectID uuid.UUID
		var name string
		if err := rows.Scan(&projectID, &name); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		skills[projectID] = append(skills[projectID], name)
	}
	return skills, rows.Err()
}
