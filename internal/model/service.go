package model

import "time"

// ServiceConfig is a registry entry for an upstream backend. Floodgate stores
// and serves these records; it does not dial them (no proxy path, no live
// health checking).
type ServiceConfig struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	BaseURL         string    `json:"base_url" db:"base_url"`
	HealthCheckPath string    `json:"health_check_path" db:"health_check_path"`
	AuthType        string    `json:"auth_type" db:"auth_type"` // none, api_key, bearer
	IsActive        bool      `json:"is_active" db:"is_active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
