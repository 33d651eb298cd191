package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wealthforge/network/internal/domain"
)

// ProfileRepository implements domain.ProfileRepository using Postgres.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new Postgres-backed ProfileRepository.
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{pool: db.pool}
}

const profileColumns = `id, email, display_name, avatar_ref, is_admin, status, password_hash, created_at, updated_at`

func (r *ProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	if profile.Status == "" {
		profile.Status = domain.ProfileStatusActive
	}
	now := time.Now().UTC()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO profiles (id, email, display_name, avatar_ref, is_admin, status, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		profile.ID, profile.Email, profile.DisplayName, profile.AvatarRef,
		profile.IsAdmin, string(profile.Status), profile.PasswordHash, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert profile: %w", err)
	}

	profile.CreatedAt = now
	profile.UpdatedAt = now
	return nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return r.get(ctx, "id = $1", id)
}

func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.get(ctx, "email = $1", email)
}

func (r *ProfileRepository) get(ctx context.Context, where string, arg any) (*domain.Profile, error) {
	profile := &domain.Profile{}
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE `+where, arg,
	).Scan(
		&profile.ID, &profile.Email, &profile.DisplayName, &profile.AvatarRef,
		&profile.IsAdmin, &status, &profile.PasswordHash, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}
	profile.Status = domain.ProfileStatus(status)
	return profile, nil
}

func (r *ProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	now := time.Now().UTC()
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET display_name = $1, avatar_ref = $2, is_admin = $3, status = $4, updated_at = $5
		 WHERE id = $6`,
		profile.DisplayName, profile.AvatarRef, profile.IsAdmin, string(profile.Status), now, profile.ID,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	profile.UpdatedAt = now
	return nil
}

func (r *ProfileRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ProfileStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update profile status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM profiles ORDER BY created_at ASC`,
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

// isUniqueViolation checks for a Postgres unique constraint violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
