package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/floodgatehq/floodgate/internal/model"
)

// InsertRequestLog appends an audit record for an inbound request. Rows are
// write-once; there is no update path.
func (s *Store) InsertRequestLog(ctx context.Context, entry *model.RequestLog) error {
	if entry.ID == "" {
		entry.ID = uuid.Must(uuid.NewV7()).String()
	}
	entry.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO request_logs
		(id, request_id, method, path, status_code, response_time_ms, ip_address, user_agent, user_id, api_key_id, error, created_at)
		VALUES
		(:id, :request_id, :method, :path, :status_code, :response_time_ms, :ip_address, :user_agent, :user_id, :api_key_id, :error, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, q, entry); err != nil {
		return fmt.Errorf("insert request log: %w", err)
	}
	return nil
}

// ListRequestLogs returns a page of request logs ordered by creation time,
// newest first, along with the total row count.
func (s *Store) ListRequestLogs(ctx context.Context, limit, offset int) ([]model.RequestLog, int64, error) {
	var total int64
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM request_logs"); err != nil {
		return nil, 0, fmt.Errorf("count request logs: %w", err)
	}

	var logs []model.RequestLog
	if err := s.db.SelectContext(ctx, &logs,
		s.rebind("SELECT * FROM request_logs ORDER BY created_at DESC LIMIT ? OFFSET ?"), limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list request logs: %w", err)
	}
	return logs, total, nil
}

// Ping verifies database connectivity, used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
