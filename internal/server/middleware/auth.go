package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/floodgatehq/floodgate/internal/model"
	"github.com/floodgatehq/floodgate/internal/service"
	"github.com/floodgatehq/floodgate/internal/store"
)

type contextKeyAuth string

// AuthPrincipalKey is the context key for the authenticated principal.
const AuthPrincipalKey contextKeyAuth = "auth_principal"

// Principal is the authenticated identity attached to the request context.
// It is the only side effect of a successful pass through the gates.
type Principal struct {
	UserID   string
	Username string
	Role     string
	APIKeyID string // set when the request authenticated with an API key
}

// UserStore is the subset of the store the authentication gate needs to
// resolve API key owners.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// Authenticate returns the authentication gate. Two credential forms are
// accepted:
//
//  1. An access token via "Authorization: Bearer <token>". Refresh tokens,
//     expired tokens, and malformed headers are all rejected with the same
//     401 envelope.
//  2. A raw API key via the X-API-Key header. Revoked and expired keys are
//     rejected; valid keys resolve to their owner's identity.
//
// On success a Principal is attached to the request context for downstream
// handlers.
func Authenticate(authSvc *service.AuthService, keySvc *service.APIKeyService, users UserStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var principal *Principal

			if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
				key, err := keySvc.Validate(r.Context(), apiKey)
				if err != nil {
					logger.Debug("api key rejected", "error", err, "request_id", GetRequestID(r.Context()))
					writeAuthError(w, http.StatusUnauthorized, "Invalid API key")
					return
				}
				owner, err := users.GetUser(r.Context(), key.UserID)
				if err != nil || !owner.IsActive {
					if err != nil && !errors.Is(err, store.ErrNotFound) {
						logger.Error("resolve api key owner", "error", err, "key_id", key.ID)
					}
					writeAuthError(w, http.StatusUnauthorized, "Invalid API key")
					return
				}
				principal = &Principal{
					UserID:   owner.ID,
					Username: owner.Username,
					Role:     owner.Role,
					APIKeyID: key.ID,
				}
			}

			if principal == nil {
				header := r.Header.Get("Authorization")
				if !strings.HasPrefix(header, "Bearer ") {
					writeAuthError(w, http.StatusUnauthorized, "Authentication required")
					return
				}
				claims, err := authSvc.VerifyAccess(strings.TrimPrefix(header, "Bearer "))
				if err != nil {
					logger.Debug("access token rejected", "error", err, "request_id", GetRequestID(r.Context()))
					writeAuthError(w, http.StatusUnauthorized, "Invalid or expired token")
					return
				}
				principal = &Principal{
					UserID:   claims.UserID,
					Username: claims.Username,
					Role:     claims.Role,
				}
			}

			if h, ok := r.Context().Value(principalHolderKey).(*principalHolder); ok {
				h.principal = principal
			}
			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns the role gate. It must run after Authenticate. The
// check is exact string equality: there is no role hierarchy, and admin does
// not implicitly satisfy a "user" requirement.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil || principal.Role != role {
				writeAuthError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil for unauthenticated requests.
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Hand-built JSON avoids an import cycle with the handler package.
	w.Write([]byte(`{"error":{"code":` + statusString(status) + `,"message":"` + message + `"}}`))
}

func statusString(code int) string {
	switch code {
	case http.StatusUnauthorized:
		return "401"
	case http.StatusForbidden:
		return "403"
	default:
		return "500"
	}
}
