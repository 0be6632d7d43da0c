package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/floodgatehq/floodgate/internal/model"
)

// apiKeyRow maps 1:1 to the api_keys table columns. The permissions list is
// stored as a JSON-encoded text column.
type apiKeyRow struct {
	ID              string     `db:"id"`
	UserID          string     `db:"user_id"`
	Name            string     `db:"name"`
	KeyHash         string     `db:"key_hash"`
	KeyPrefix       string     `db:"key_prefix"`
	PermissionsJSON string     `db:"permissions_json"`
	RateLimit       int        `db:"rate_limit"`
	IsActive        bool       `db:"is_active"`
	LastUsed        *time.Time `db:"last_used"`
	ExpiresAt       *time.Time `db:"expires_at"`
	CreatedAt       time.Time  `db:"created_at"`
}

func apiKeyRowFromModel(key *model.APIKey) (apiKeyRow, error) {
	perms := key.Permissions
	if perms == nil {
		perms = []string{"*"}
	}
	permsJSON, err := json.Marshal(perms)
	if err != nil {
		return apiKeyRow{}, fmt.Errorf("marshal permissions: %w", err)
	}
	return apiKeyRow{
		ID:              key.ID,
		UserID:          key.UserID,
		Name:            key.Name,
		KeyHash:         key.KeyHash,
		KeyPrefix:       key.KeyPrefix,
		PermissionsJSON: string(permsJSON),
		RateLimit:       key.RateLimit,
		IsActive:        key.IsActive,
		LastUsed:        key.LastUsed,
		ExpiresAt:       key.ExpiresAt,
		CreatedAt:       key.CreatedAt,
	}, nil
}

func (r apiKeyRow) toModel() (model.APIKey, error) {
	var perms []string
	if r.PermissionsJSON != "" {
		if err := json.Unmarshal([]byte(r.PermissionsJSON), &perms); err != nil {
			return model.APIKey{}, fmt.Errorf("unmarshal permissions: %w", err)
		}
	}
	if perms == nil {
		perms = []string{"*"}
	}
	return model.APIKey{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		KeyHash:     r.KeyHash,
		KeyPrefix:   r.KeyPrefix,
		Permissions: perms,
		RateLimit:   r.RateLimit,
		IsActive:    r.IsActive,
		LastUsed:    r.LastUsed,
		ExpiresAt:   r.ExpiresAt,
		CreatedAt:   r.CreatedAt,
	}, nil
}

// CreateAPIKey inserts a new API key record. The key_hash must already be set;
// the store never sees the raw secret. ID and CreatedAt are populated on
// success.
func (s *Store) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	if key.ID == "" {
		key.ID = uuid.Must(uuid.NewV7()).String()
	}
	key.CreatedAt = time.Now().UTC()

	row, err := apiKeyRowFromModel(key)
	if err != nil {
		return err
	}

	const q = `INSERT INTO api_keys
		(id, user_id, name, key_hash, key_prefix, permissions_json, rate_limit, is_active, last_used, expires_at, created_at)
		VALUES
		(:id, :user_id, :name, :key_hash, :key_prefix, :permissions_json, :rate_limit, :is_active, :last_used, :expires_at, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// GetAPIKeyByHash looks up an API key by its SHA-256 hash.
func (s *Store) GetAPIKeyByHash(ctx context.Context, hash string) (*model.APIKey, error) {
	var row apiKeyRow
	if err := s.db.GetContext(ctx, &row, s.rebind("SELECT * FROM api_keys WHERE key_hash = ?"), hash); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key by hash: %w", err)
	}
	key, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// ListAPIKeysByUser returns the given user's API keys ordered by creation
// time, newest first. Revoked keys are included (audit trail).
func (s *Store) ListAPIKeysByUser(ctx context.Context, userID string) ([]model.APIKey, error) {
	var rows []apiKeyRow
	if err := s.db.SelectContext(ctx, &rows,
		s.rebind("SELECT * FROM api_keys WHERE user_id = ? ORDER BY created_at DESC"), userID); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}

	keys := make([]model.APIKey, 0, len(rows))
	for _, r := range rows {
		key, err := r.toModel()
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// RevokeAPIKeyOwned marks an API key inactive, but only if it belongs to the
// given user. A key that exists under another owner reports ErrNotFound, so
// callers cannot probe for other users' keys. The row is kept for audit.
func (s *Store) RevokeAPIKeyOwned(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE api_keys SET is_active = ? WHERE id = ? AND user_id = ?"), false, id, userID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke api key rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAPIKeyLastUsed sets the last_used timestamp for an API key.
func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE api_keys SET last_used = ? WHERE id = ?"), now, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update api key last used rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
