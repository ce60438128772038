package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the blueprint tables and their indexes if missing.
// Listing indexes mirror the sort keys the search catalog exposes.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, prefix string) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + tables.Blueprints + ` (
			id UUID PRIMARY KEY,
			owner_id TEXT NOT NULL,
			owner_name TEXT NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('b', 'f')),
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			blueprint TEXT NOT NULL,
			game_version TEXT NOT NULL,
			views BIGINT NOT NULL DEFAULT 0,
			downloads BIGINT NOT NULL DEFAULT 0,
			screenshot_url TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.BlueprintVersions + ` (
			blueprint_id UUID PRIMARY KEY REFERENCES ` + tables.Blueprints + `(id) ON DELETE CASCADE,
			owner_id TEXT NOT NULL,
			versions JSONB NOT NULL,
			revision BIGINT NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + prefix + `blueprints_owner_name ON ` + tables.Blueprints + `(owner_name)`,
		`CREATE INDEX IF NOT EXISTS idx_` + prefix + `blueprints_updated ON ` + tables.Blueprints + `(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_` + prefix + `blueprints_downloads ON ` + tables.Blueprints + `(downloads)`,
		`CREATE INDEX IF NOT EXISTS idx_` + prefix + `blueprints_views ON ` + tables.Blueprints + `(views)`,
		`CREATE INDEX IF NOT EXISTS idx_` + prefix + `blueprints_fts ON ` + tables.Blueprints +
			` USING GIN (to_tsvector('simple', name || ' ' || description))`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// DropSchema removes the blueprint tables for a prefix
func DropSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, table := range []string{tables.BlueprintVersions, tables.Blueprints} {
		if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS `+table+` CASCADE`); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}
