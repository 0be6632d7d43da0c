package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/floodgatehq/floodgate/internal/model"
	"github.com/floodgatehq/floodgate/internal/store"
)

// AdminHandler exposes the admin-only user directory and audit log views.
// Routes using it sit behind the admin role gate.
type AdminHandler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(st *store.Store, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{store: st, logger: logger}
}

// ListUsers returns every account, password hashes excluded by serialization.
// GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		internalError(w, r, h.logger, "list users", err)
		return
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: users,
		Meta:     &model.ResponseMeta{Count: len(users)},
	})
}

type updateUserRequest struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// UpdateUser changes an account's role or active flag. Other fields are
// immutable through this endpoint.
// PATCH /api/admin/users/{userId}
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userId")

	var req updateUserRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Role == nil && req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "Nothing to update")
		return
	}
	if req.Role != nil && *req.Role != model.RoleAdmin && *req.Role != model.RoleUser {
		writeError(w, http.StatusBadRequest, "Invalid role: "+*req.Role)
		return
	}

	user, err := h.store.UpdateUser(r.Context(), id, model.UserUpdate{
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		internalError(w, r, h.logger, "update user", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// ListLogs returns a page of the request audit trail, newest first.
// GET /api/admin/logs?limit=&offset=
func (h *AdminHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(queryInt(r, "limit", 100), 1, 1000)
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	logs, total, err := h.store.ListRequestLogs(r.Context(), limit, offset)
	if err != nil {
		internalError(w, r, h.logger, "list request logs", err)
		return
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: logs,
		Meta: &model.ResponseMeta{
			Count:  len(logs),
			Total:  &total,
			Limit:  limit,
			Offset: offset,
		},
	})
}
