package model

import "time"

// Role constants for user accounts. There is no implicit hierarchy: an admin
// passes a `user` role check only where a handler explicitly allows it.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account. Passwords are stored as bcrypt hashes
// and never serialized in API responses.
type User struct {
	ID           string     `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"` // bcrypt hash, never expose
	Role         string     `json:"role" db:"role"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	// RefreshInvalidBefore is a rotation watermark: refresh tokens issued
	// before this instant are rejected. NULL means no invalidation yet.
	RefreshInvalidBefore *time.Time `json:"-" db:"refresh_invalid_before"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
}

// UserUpdate holds the mutable admin-controlled fields of a user. Nil fields
// are left untouched.
type UserUpdate struct {
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}
