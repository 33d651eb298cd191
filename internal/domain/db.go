package domain

import "context"

// Database defines lifecycle operations and repository access for the
// underlying datastore. Each implementation (SQLite, Postgres) owns its
// own migration files and strategy, so the entire backend is swappable.
type Database interface {
	Migrate(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error

	Profiles() ProfileRepository
	Messages() MessageRepository
	Projects() ProjectRepository
}
