package model

import "time"

// KeyPrefixLen is the number of leading characters of a raw API key secret
// stored in clear for display and identification.
const KeyPrefixLen = 12

// APIKey represents a programmatic credential owned by a user. The raw secret
// is returned exactly once at creation; only a SHA-256 hash and a short
// display prefix are persisted.
type APIKey struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Name        string     `json:"name" db:"name"`
	KeyHash     string     `json:"-" db:"key_hash"` // SHA-256 hash, never expose
	KeyPrefix   string     `json:"key_prefix" db:"key_prefix"`
	Permissions []string   `json:"permissions"` // service names or "*"; stored as JSON
	RateLimit   int        `json:"rate_limit" db:"rate_limit"` // requests/hour, declared only
	IsActive    bool       `json:"is_active" db:"is_active"`
	LastUsed    *time.Time `json:"last_used,omitempty" db:"last_used"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
