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

// ProfileRepository implements domain.ProfileRepository using SQLite.
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new SQLite-backed ProfileRepository.
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db.SqlDB}
}

func (r *ProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	if profile.Status == "" {
		profile.Status = domain.ProfileStatusActive
	}
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, email, display_name, avatar_ref, is_admin, status, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		profile.ID, profile.Email, profile.DisplayName, profile.AvatarRef,
		profile.IsAdmin, string(profile.Status), profile.PasswordHash, now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert profile: %w", err)
	}

	profile.CreatedAt = now
	profile.UpdatedAt = now
	return nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return r.get(ctx, "id = ?", id)
}

func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.get(ctx, "email = ?", email)
}

func (r *ProfileRepository) get(ctx context.Context, where string, arg any) (*domain.Profile, error) {
	profile := &domain.Profile{}
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, avatar_ref, is_admin, status, password_hash, created_at, updated_at
		 FROM profiles WHERE `+where, arg,
	).Scan(
		&profile.ID, &profile.Email, &profile.DisplayName, &profile.AvatarRef,
		&profile.IsAdmin, &status, &profile.PasswordHash, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}
	profile.Status = domain.ProfileStatus(status)
	return profile, nil
}

func (r *ProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET display_name = ?, avatar_ref = ?, is_admin = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		profile.DisplayName, profile.AvatarRef, profile.IsAdmin, string(profile.Status), now, profile.ID,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	profile.UpdatedAt = now
	return nil
}

func (r *ProfileRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ProfileStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update profile status: %w", err)
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

func (r *ProfileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, display_name, avatar_ref, is_admin, status, password_hash, created_at, updated_at
		 FROM profiles ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]domain.Profile, 0)
	for rows.Next() {
		var p domain.Profile
		var status string
		if err := rows.Scan(
			&p.ID, &p.Email, &p.DisplayName, &p.AvatarRef,
			&p.IsAdmin, &status, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.Status = domain.ProfileStatus(status)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// isUniqueConstraintError checks if the error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
