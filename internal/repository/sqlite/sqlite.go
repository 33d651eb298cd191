package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wealthforge/network/internal/domain"
	"github.com/wealthforge/network/internal/repository/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection and exposes the repositories backed by it.
type DB struct {
	SqlDB *sql.DB

	profiles *ProfileRepository
	messages *MessageRepository
	projects *ProjectRepository
}

var _ domain.Database = (*DB)(nil)

// New opens a SQLite database at the given path and configures it for use.
// It enables WAL mode and foreign keys.
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Enable foreign key enforcement.
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// SQLite allows a single writer; serialize access through one connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	d := &DB{SqlDB: db}
	d.profiles = NewProfileRepository(d)
	d.messages = NewMessageRepository(d)
	d.projects = NewProjectRepository(d)
	return d, nil
}

// Migrate applies all pending schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, d.SqlDB)
}

// Health reports whether the database is reachable.
func (d *DB) Health(ctx context.Context) error {
	return d.SqlDB.PingContext(ctx)
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.SqlDB.Close()
}

// Profiles returns the profile repository.
func (d *DB) Profiles() domain.ProfileRepository { return d.profiles }

// Messages returns the message repository.
func (d *DB) Messages() domain.MessageRepository { return d.messages }

// Projects returns the project repository.
func (d *DB) Projects() domain.ProjectRepository { return d.projects }
