package store

import (
	"fmt"
	"strings"
)

// sqliteMigrations and postgresMigrations carry the same logical schema in
// each dialect. IDs are UUID strings generated in Go, so both backends use
// plain TEXT primary keys.
var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		is_active INTEGER NOT NULL DEFAULT 1,
		refresh_invalid_before DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		key_hash TEXT UNIQUE NOT NULL,
		key_prefix TEXT NOT NULL,
		permissions_json TEXT NOT NULL DEFAULT '["*"]',
		rate_limit INTEGER NOT NULL DEFAULT 1000,
		is_active INTEGER NOT NULL DEFAULT 1,
		last_used DATETIME,
		expires_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS services (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		base_url TEXT NOT NULL,
		health_check_path TEXT NOT NULL DEFAULT '/health',
		auth_type TEXT NOT NULL DEFAULT 'none',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS request_logs (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		response_time_ms REAL NOT NULL,
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		user_id TEXT,
		api_key_id TEXT,
		error TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_api_keys_hash ON api_keys(key_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_user ON api_keys(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_request_logs_created ON request_logs(created_at)`,
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		refresh_invalid_before TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		key_hash TEXT UNIQUE NOT NULL,
		key_prefix TEXT NOT NULL,
		permissions_json TEXT NOT NULL DEFAULT '["*"]',
		rate_limit INTEGER NOT NULL DEFAULT 1000,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_used TIMESTAMPTZ,
		expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS services (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		base_url TEXT NOT NULL,
		health_check_path TEXT NOT NULL DEFAULT '/health',
		auth_type TEXT NOT NULL DEFAULT 'none',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS request_logs (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		response_time_ms DOUBLE PRECISION NOT NULL,
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		user_id TEXT,
		api_key_id TEXT,
		error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_api_keys_hash ON api_keys(key_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_user ON api_keys(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_request_logs_created ON request_logs(created_at)`,
}

func (s *Store) migrate() error {
	migrations := sqliteMigrations
	if s.driver == "postgres" {
		migrations = postgresMigrations
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// ALTER TABLE ADD COLUMN fails if the column already exists;
			// treat "duplicate column" as a no-op for idempotent migrations.
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
