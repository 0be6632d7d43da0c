package model

import "time"

// RequestLog is an append-only audit record of an inbound API call. Rows are
// written once by the logging middleware and never mutated.
type RequestLog struct {
	ID             string    `json:"id" db:"id"`
	RequestID      string    `json:"request_id" db:"request_id"`
	Method         string    `json:"method" db:"method"`
	Path           string    `json:"path" db:"path"`
	StatusCode     int       `json:"status_code" db:"status_code"`
	ResponseTimeMs float64   `json:"response_time_ms" db:"response_time_ms"`
	IPAddress      string    `json:"ip_address" db:"ip_address"`
	UserAgent      string    `json:"user_agent" db:"user_agent"`
	UserID         *string   `json:"user_id,omitempty" db:"user_id"`
	APIKeyID       *string   `json:"api_key_id,omitempty" db:"api_key_id"`
	Error          *string   `json:"error,omitempty" db:"error"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
