package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/floodgatehq/floodgate/internal/auth"
	"github.com/floodgatehq/floodgate/internal/model"
	"github.com/floodgatehq/floodgate/internal/server/middleware"
	"github.com/floodgatehq/floodgate/internal/service"
	"github.com/floodgatehq/floodgate/internal/store"
)

// AuthHandler exposes registration, login, token refresh, and the current
// user endpoint.
type AuthHandler struct {
	authSvc *service.AuthService
	store   *store.Store
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc *service.AuthService, st *store.Store, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, store: st, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User         *model.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// Register creates a new account and signs it in.
// POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, pair, err := h.authSvc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrDuplicateUsername):
			writeError(w, http.StatusBadRequest, "Username already exists")
		case errors.Is(err, store.ErrDuplicateEmail):
			writeError(w, http.StatusBadRequest, "Email already exists")
		default:
			internalError(w, r, h.logger, "register", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Login authenticates a username/password pair.
// POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, pair, err := h.authSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, service.ErrAccountDisabled):
			writeError(w, http.StatusUnauthorized, "Account is disabled")
		default:
			internalError(w, r, h.logger, "login", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh rotates a refresh token into a new access/refresh pair.
// POST /api/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	pair, err := h.authSvc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		case errors.Is(err, service.ErrAccountDisabled):
			writeError(w, http.StatusUnauthorized, "Account is disabled")
		default:
			internalError(w, r, h.logger, "refresh", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// Logout moves the caller's refresh-token watermark so previously issued
// refresh tokens stop working. Outstanding access tokens expire naturally.
// POST /api/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	if err := h.authSvc.Logout(r.Context(), principal.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		internalError(w, r, h.logger, "logout", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Session invalidated",
	})
}

// Me returns the authenticated user's record, password stripped.
// GET /api/user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	user, err := h.store.GetUser(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		internalError(w, r, h.logger, "get current user", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
