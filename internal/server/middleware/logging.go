package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/floodgatehq/floodgate/internal/model"
)

// RequestLogStore is the subset of the store the logging middleware needs.
type RequestLogStore interface {
	InsertRequestLog(ctx context.Context, entry *model.RequestLog) error
}

// Logger returns a middleware that emits one structured log line per request
// and, when logStore is non-nil, appends a write-once audit row for every
// /api call. The audit write happens after the response is sent and never
// blocks or fails the request.
func Logger(logger *slog.Logger, logStore RequestLogStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			// The principal is attached by the auth gate further down the
			// chain, in a child context this middleware never sees. The
			// holder lets the gate report the identity back up for auditing.
			holder := &principalHolder{}
			r = r.WithContext(context.WithValue(r.Context(), principalHolderKey, holder))

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			durationMs := float64(duration.Microseconds()) / 1000.0

			level := slog.LevelInfo
			if ww.status >= 500 {
				level = slog.LevelError
			} else if ww.status >= 400 {
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.status,
				"duration_ms", durationMs,
				"bytes", ww.bytes,
				"request_id", GetRequestID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)

			if logStore == nil || !strings.HasPrefix(r.URL.Path, "/api/") {
				return
			}

			entry := &model.RequestLog{
				RequestID:      GetRequestID(r.Context()),
				Method:         r.Method,
				Path:           r.URL.Path,
				StatusCode:     ww.status,
				ResponseTimeMs: durationMs,
				IPAddress:      r.RemoteAddr,
				UserAgent:      r.UserAgent(),
			}
			if p := holder.principal; p != nil {
				userID := p.UserID
				entry.UserID = &userID
				if p.APIKeyID != "" {
					keyID := p.APIKeyID
					entry.APIKeyID = &keyID
				}
			}
			if err := logStore.InsertRequestLog(context.Background(), entry); err != nil {
				logger.Error("insert request log", "error", err, "request_id", entry.RequestID)
			}
		})
	}
}

const principalHolderKey contextKey = "principal_holder"

// principalHolder carries the authenticated identity from the auth gate back
// up to the logging middleware that wrapped it.
type principalHolder struct {
	principal *Principal
}

// responseWriter wraps http.ResponseWriter to capture the status code and
// bytes written.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap returns the underlying ResponseWriter, required for http.Flusher
// and other interface assertions through middleware chains.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
