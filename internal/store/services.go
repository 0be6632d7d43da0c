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

// CreateService inserts a new service registry entry. Returns
// ErrDuplicateService if the name is already registered.
func (s *Store) CreateService(ctx context.Context, svc *model.ServiceConfig) error {
	if _, err := s.GetServiceByName(ctx, svc.Name); err == nil {
		return ErrDuplicateService
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if svc.ID == "" {
		svc.ID = uuid.Must(uuid.NewV7()).String()
	}
	now := time.Now().UTC()
	svc.CreatedAt = now
	svc.UpdatedAt = now

	const q = `INSERT INTO services
		(id, name, base_url, health_check_path, auth_type, is_active, created_at, updated_at)
		VALUES
		(:id, :name, :base_url, :health_check_path, :auth_type, :is_active, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, svc); err != nil {
		if isUniqueViolation(err.Error()) {
			return ErrDuplicateService
		}
		return fmt.Errorf("insert service: %w", err)
	}
	return nil
}

// GetServiceByName returns a service by its unique name.
func (s *Store) GetServiceByName(ctx context.Context, name string) (*model.ServiceConfig, error) {
	var svc model.ServiceConfig
	if err := s.db.GetContext(ctx, &svc, s.rebind("SELECT * FROM services WHERE name = ?"), name); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get service by name: %w", err)
	}
	return &svc, nil
}

// ListServices returns all registered services ordered by creation time,
// newest first.
func (s *Store) ListServices(ctx context.Context) ([]model.ServiceConfig, error) {
	var services []model.ServiceConfig
	if err := s.db.SelectContext(ctx, &services, "SELECT * FROM services ORDER BY created_at DESC"); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

// UpdateService updates an existing service entry. The UpdatedAt field is
// refreshed automatically.
func (s *Store) UpdateService(ctx context.Context, svc *model.ServiceConfig) error {
	svc.UpdatedAt = time.Now().UTC()

	const q = `UPDATE services SET
		base_url = :base_url, health_check_path = :health_check_path,
		auth_type = :auth_type, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, svc)
	if err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update service rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteService removes a service registry entry by name.
func (s *Store) DeleteService(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM services WHERE name = ?"), name)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete service rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
