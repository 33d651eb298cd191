package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wealthforge/network/internal/domain"
)

// ProjectRepository implements domain.ProjectRepository using SQLite.
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new SQLite-backed ProjectRepository.
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db.SqlDB}
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	if project.Status == "" {
		project.Status = domain.ProjectStatusPending
	}
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects (id, title, description, category, location, budget, creator_id, status, featured, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID, project.Title, project.Description, project.Category,
		project.Location, project.Budget, project.CreatorID, string(project.Status),
		project.Featured, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}

	for _, name := range project.RequiredSkills {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO skills (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("insert skill: %w", err)
		}
		var skillID int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM skills WHERE name = ?`, name).Scan(&skillID); err != nil {
			return fmt.Errorf("query skill id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO project_required_skills (project_id, skill_id) VALUES (?, ?)`,
			project.ID, skillID,
		); err != nil {
			return fmt.Errorf("link skill: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	project.CreatedAt = now
	project.UpdatedAt = now
	return nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	p := &domain.Project{}
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT pr.id, pr.title, pr.description, pr.category, pr.location, pr.budget,
		        pr.creator_id, pf.display_name, pr.status, pr.featured, pr.created_at, pr.updated_at
		 FROM projects pr
		 JOIN profiles pf ON pf.id = pr.creator_id
		 WHERE pr.id = ?`, id,
	).Scan(
		&p.ID, &p.Title, &p.Description, &p.Category, &p.Location, &p.Budget,
		&p.CreatorID, &p.CreatorName, &status, &p.Featured, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
		SELECT pr.id, pr.title, pr.description, pr.category, pr.location, pr.budget,
		       pr.creator_id, pf.display_name, pr.status, pr.featured, pr.created_at, pr.updated_at
		FROM projects pr
		JOIN profiles pf ON pf.id = pr.creator_id`

	var where []string
	var args []any
	if filter.Status != "" {
		where = append(where, "pr.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Category != "" {
		where = append(where, "pr.category = ?")
		args = append(args, filter.Category)
	}
	if filter.Query != "" {
		where = append(where, "(pr.title LIKE ? OR pr.description LIKE ?)")
		pattern := "%" + filter.Query + "%"
		args = append(args, pattern, pattern)
	}
	if filter.CreatorID != uuid.Nil {
		where = append(where, "pr.creator_id = ?")
		args = append(args, filter.CreatorID)
	}
	if filter.FeaturedOnly {
		where = append(where, "pr.featured = 1")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY pr.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
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
	result, err := r.db.ExecContext(ctx,
		`UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update project status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProjectRepository) UpdateFeatured(ctx context.Context, id uuid.UUID, featured bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE projects SET featured = ?, updated_at = ? WHERE id = ?`,
		featured, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update project featured: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProjectRepository) CountByCreator(ctx context.Context, creatorID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE creator_id = ?`, creatorID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return count, nil
}

// loadSkills returns the required skill names per project id, sorted by name.
func (r *ProjectRepository) loadSkills(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]string, error) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT prs.project_id, s.name
		 FROM project_required_skills prs
		 JOIN skills s ON s.id = prs.skill_id
		 WHERE prs.project_id IN (`+strings.Join(placeholders, ", ")+`)
		 ORDER BY s.name ASC`,
		args...,
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
