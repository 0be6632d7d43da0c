package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/floodgatehq/floodgate/internal/model"
)

// CreateUser inserts a new user record. The caller supplies a pre-hashed
// password; the store never hashes. The ID and CreatedAt fields are populated
// on success. Returns ErrDuplicateUsername or ErrDuplicateEmail on conflict.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	// Explicit pre-checks give precise duplicate errors in the common case;
	// the UNIQUE constraints remain the authority under concurrent inserts.
	if _, err := s.GetUserByUsername(ctx, user.Username); err == nil {
		return ErrDuplicateUsername
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if _, err := s.GetUserByEmail(ctx, user.Email); err == nil {
		return ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if user.ID == "" {
		user.ID = uuid.Must(uuid.NewV7()).String()
	}
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	user.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO users
		(id, username, email, password_hash, role, is_active, refresh_invalid_before, created_at)
		VALUES
		(:id, :username, :email, :password_hash, :role, :is_active, :refresh_invalid_before, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, q, user); err != nil {
		return translateUserConflict(fmt.Errorf("insert user: %w", err))
	}
	return nil
}

// GetUser returns a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := s.db.GetContext(ctx, &user, s.rebind("SELECT * FROM users WHERE id = ?"), id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// GetUserByUsername returns a user by their unique username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := s.db.GetContext(ctx, &user, s.rebind("SELECT * FROM users WHERE username = ?"), username); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return &user, nil
}

// GetUserByEmail returns a user by their unique email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.db.GetContext(ctx, &user, s.rebind("SELECT * FROM users WHERE email = ?"), email); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &user, nil
}

// ListUsers returns all users ordered by creation time, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.SelectContext(ctx, &users, "SELECT * FROM users ORDER BY created_at DESC"); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateUser applies the non-nil fields of upd to the user and returns the
// updated record. Returns ErrNotFound if the user does not exist.
func (s *Store) UpdateUser(ctx context.Context, id string, upd model.UserUpdate) (*model.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Role != nil {
		user.Role = *upd.Role
	}
	if upd.IsActive != nil {
		user.IsActive = *upd.IsActive
	}

	const q = `UPDATE users SET role = :role, is_active = :is_active WHERE id = :id`
	result, err := s.db.NamedExecContext(ctx, q, user)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update user rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return user, nil
}

// InvalidateRefreshTokens sets the user's rotation watermark to now. Refresh
// tokens issued before this instant are rejected by the token refresh flow.
// The watermark is truncated to whole seconds to match JWT iat precision;
// otherwise a token minted in the same second as the logout would carry an
// iat fractionally behind the watermark and be rejected.
func (s *Store) InvalidateRefreshTokens(ctx context.Context, id string) error {
	now := time.Now().UTC().Truncate(time.Second)
	result, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE users SET refresh_invalid_before = ? WHERE id = ?"), now, id)
	if err != nil {
		return fmt.Errorf("invalidate refresh tokens: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("invalidate refresh tokens rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
