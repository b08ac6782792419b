package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations are applied in order on startup. Every statement is
// IF NOT EXISTS, so re-running is safe.
var migrations = []string{
	`CREATE SCHEMA IF NOT EXISTS org`,

	`CREATE TABLE IF NOT EXISTS org.members (
		id UUID PRIMARY KEY,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		region TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		municipality TEXT NOT NULL DEFAULT '',
		locality TEXT NOT NULL DEFAULT '',
		term_start DATE,
		term_end DATE,
		verified_office_holder BOOLEAN NOT NULL DEFAULT FALSE,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		pending_sync BOOLEAN NOT NULL DEFAULT FALSE,
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS members_email_idx ON org.members (email)`,
	`CREATE INDEX IF NOT EXISTS members_municipality_idx ON org.members (municipality)`,
	`CREATE INDEX IF NOT EXISTS members_role_idx ON org.members (role)`,

	`CREATE TABLE IF NOT EXISTS org.messages (
		id TEXT PRIMARY KEY,
		sender_id UUID NOT NULL,
		sender_role TEXT NOT NULL,
		sender_rank INT NOT NULL,
		body TEXT NOT NULL,
		type TEXT NOT NULL,
		priority TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		municipality TEXT NOT NULL DEFAULT '',
		thread_id TEXT NOT NULL DEFAULT '',
		ai_assisted BOOLEAN NOT NULL DEFAULT FALSE,
		read_by UUID[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS messages_sender_rank_idx ON org.messages (sender_rank)`,
	`CREATE INDEX IF NOT EXISTS messages_department_idx ON org.messages (department)`,
	`CREATE INDEX IF NOT EXISTS messages_created_at_idx ON org.messages (created_at)`,
}

// Migrate applies the schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
