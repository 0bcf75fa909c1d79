package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements create the registry and model tables. Statements are
// idempotent so startup can run them unconditionally.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS fs_entity (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		project TEXT NOT NULL,
		name TEXT NOT NULL,
		join_key TEXT NOT NULL,
		value_type TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		labels JSONB NOT NULL DEFAULT '{}',
		UNIQUE (project, name)
	)`,
	`CREATE TABLE IF NOT EXISTS fs_data_source (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		project TEXT NOT NULL,
		name TEXT NOT NULL,
		table_ref TEXT NOT NULL DEFAULT '',
		query TEXT NOT NULL DEFAULT '',
		event_timestamp_column TEXT NOT NULL,
		created_timestamp_column TEXT NOT NULL DEFAULT '',
		date_partition_column TEXT NOT NULL DEFAULT '',
		field_mapping JSONB NOT NULL DEFAULT '{}',
		description TEXT NOT NULL DEFAULT '',
		labels JSONB NOT NULL DEFAULT '{}',
		UNIQUE (project, name)
	)`,
	`CREATE TABLE IF NOT EXISTS fs_feature_view (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		project TEXT NOT NULL,
		name TEXT NOT NULL,
		entities JSONB NOT NULL,
		features JSONB NOT NULL,
		source_name TEXT NOT NULL,
		ttl_ns BIGINT NOT NULL DEFAULT 0,
		online BOOLEAN NOT NULL DEFAULT FALSE,
		description TEXT NOT NULL DEFAULT '',
		labels JSONB NOT NULL DEFAULT '{}',
		materialized_intervals JSONB NOT NULL DEFAULT '[]',
		UNIQUE (project, name)
	)`,
	`CREATE TABLE IF NOT EXISTS fs_feature_service (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		project TEXT NOT NULL,
		name TEXT NOT NULL,
		projections JSONB NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		labels JSONB NOT NULL DEFAULT '{}',
		UNIQUE (project, name)
	)`,
	`CREATE TABLE IF NOT EXISTS registered_model (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		project TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		labels JSONB NOT NULL DEFAULT '{}',
		UNIQUE (project, name)
	)`,
	`CREATE TABLE IF NOT EXISTS model_version (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		model_id UUID NOT NULL REFERENCES registered_model(id) ON DELETE CASCADE,
		version INT NOT NULL,
		run_id TEXT NOT NULL DEFAULT '',
		artifact_uri TEXT NOT NULL DEFAULT '',
		framework TEXT NOT NULL,
		status TEXT NOT NULL,
		metrics JSONB NOT NULL DEFAULT '{}',
		params JSONB NOT NULL DEFAULT '{}',
		feature_refs JSONB NOT NULL DEFAULT '[]',
		label_column TEXT NOT NULL DEFAULT '',
		UNIQUE (model_id, version)
	)`,
	`CREATE TABLE IF NOT EXISTS inference_endpoint (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		project TEXT NOT NULL,
		name TEXT NOT NULL,
		model_name TEXT NOT NULL,
		model_version INT NOT NULL,
		namespace TEXT NOT NULL,
		runtime_image TEXT NOT NULL DEFAULT '',
		external_id TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL,
		last_error TEXT NOT NULL DEFAULT '',
		labels JSONB NOT NULL DEFAULT '{}',
		UNIQUE (project, name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fs_feature_view_online ON fs_feature_view (project) WHERE online`,
	`CREATE INDEX IF NOT EXISTS idx_model_version_model ON model_version (model_id)`,
}

// EnsureSchema creates all tables the service needs if they are absent
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
