package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Config selects the storage backend. SQLite is the default and needs only a
// data directory; Postgres needs a DSN.
type Config struct {
	Driver  string // "sqlite" (default) or "postgres"
	DataDir string // sqlite only; empty means in-memory
	DSN     string // postgres only
}

// Store persists Floodgate's state: user accounts, API keys, the service
// registry, and the request log.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the configured backend and applies migrations.
func Open(cfg Config) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
	}

	var db *sqlx.DB
	var err error

	switch driver {
	case "sqlite":
		var dsn string
		if cfg.DataDir == "" {
			dsn = ":memory:?_journal_mode=WAL"
		} else {
			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
			dsn = filepath.Join(cfg.DataDir, "floodgate.db") + "?_journal_mode=WAL&_busy_timeout=5000"
		}
		db, err = sqlx.Connect("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}

	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres store requires a DSN")
		}
		db, err = sqlx.Connect("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres database: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind converts "?" placeholders to the driver's bindvar style. SQLite keeps
// "?" as-is; Postgres gets "$1, $2, ...".
func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}
