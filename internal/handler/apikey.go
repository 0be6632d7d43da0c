package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/floodgatehq/floodgate/internal/model"
	"github.com/floodgatehq/floodgate/internal/server/middleware"
	"github.com/floodgatehq/floodgate/internal/service"
	"github.com/floodgatehq/floodgate/internal/store"
)

// APIKeyHandler manages the caller's own API keys. Every operation is scoped
// to the authenticated owner.
type APIKeyHandler struct {
	keys   *service.APIKeyService
	logger *slog.Logger
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(keys *service.APIKeyService, logger *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{keys: keys, logger: logger}
}

// List returns the caller's keys, newest first, revoked ones included.
// Only the stored prefix identifies each key; raw secrets are gone for good.
// GET /api/api-keys
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	keys, err := h.keys.ListByOwner(r.Context(), principal.UserID)
	if err != nil {
		internalError(w, r, h.logger, "list api keys", err)
		return
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: keys,
		Meta:     &model.ResponseMeta{Count: len(keys)},
	})
}

type createKeyRequest struct {
	Name          string `json:"name"`
	RateLimit     int    `json:"rateLimit,omitempty"`
	ExpiresInDays int    `json:"expiresInDays,omitempty"`
}

// createKeyResponse carries the one-time raw secret alongside the persisted
// record fields.
type createKeyResponse struct {
	ID        string     `json:"id"`
	Key       string     `json:"key"` // raw secret, shown ONCE
	KeyPrefix string     `json:"key_prefix"`
	Name      string     `json:"name"`
	RateLimit int        `json:"rate_limit"`
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Create issues a new API key for the caller and returns the raw secret
// exactly once.
// POST /api/api-keys
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	var req createKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Key name is required")
		return
	}

	key, rawSecret, err := h.keys.Issue(r.Context(), principal.UserID, req.Name, req.RateLimit, req.ExpiresInDays)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		internalError(w, r, h.logger, "create api key", err)
		return
	}

	writeJSON(w, http.StatusCreated, createKeyResponse{
		ID:        key.ID,
		Key:       rawSecret,
		KeyPrefix: key.KeyPrefix,
		Name:      key.Name,
		RateLimit: key.RateLimit,
		IsActive:  key.IsActive,
		ExpiresAt: key.ExpiresAt,
		CreatedAt: key.CreatedAt,
	})
}

// Delete soft-revokes one of the caller's keys. Keys owned by other users
// are indistinguishable from missing ones.
// DELETE /api/api-keys/{keyId}
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	id := chi.URLParam(r, "keyId")

	if err := h.keys.Revoke(r.Context(), id, principal.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "API key not found")
			return
		}
		internalError(w, r, h.logger, "revoke api key", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
