package migration

import (
	"context"

	"surveylens/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// step is one idempotent schema statement.
type step struct {
	name string
	sql  string
}

func (r *MigrationRunner) steps() []step {
	return []step{
		{"create uploads table", `
		CREATE TABLE IF NOT EXISTS uploads (
			id UUID PRIMARY KEY,
			file_name TEXT NOT NULL,
			file_path TEXT,
			file_size BIGINT NOT NULL DEFAULT 0,
			mime_type VARCHAR(255),
			year VARCHAR(16) NOT NULL,
			total_responses INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`},
		{"create analysis_results table", `
		CREATE TABLE IF NOT EXISTS analysis_results (
			upload_id UUID PRIMARY KEY REFERENCES uploads(id) ON DELETE CASCADE,
			analysis_data JSONB NOT NULL DEFAULT '[]',
			basic_stats JSONB NOT NULL DEFAULT '{}',
			summary JSONB NOT NULL DEFAULT '{}',
			responses JSONB NOT NULL DEFAULT '[]',
			column_info JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`},
		{"create year index", `CREATE INDEX IF NOT EXISTS idx_uploads_year_created ON uploads(year, created_at DESC)`},
		{"create created index", `CREATE INDEX IF NOT EXISTS idx_uploads_created ON uploads(created_at DESC)`},
	}
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, s := range r.steps() {
		if _, err := db.ExecContext(ctx, s.sql); err != nil {
			return errors.Wrapf(err, "failed to %s", s.name)
		}
	}
	return nil
}
