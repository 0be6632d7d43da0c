package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/floodgatehq/floodgate/internal/auth"
	"github.com/floodgatehq/floodgate/internal/model"
	"github.com/floodgatehq/floodgate/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrValidation         = errors.New("validation failed")
)

// TokenPair is an access/refresh token set returned by login, registration,
// and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthService implements registration, login, and the refresh-token rotation
// protocol on top of the store and the token service.
type AuthService struct {
	store  *store.Store
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(st *store.Store, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:  st,
		tokens: tokens,
		logger: logger,
	}
}

// Register creates a new account and returns it together with an initial
// token pair. Duplicate usernames and emails surface as
// store.ErrDuplicateUsername / store.ErrDuplicateEmail.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*model.User, *TokenPair, error) {
	if len(username) < 3 {
		return nil, nil, fmt.Errorf("%w: username must be at least 3 characters", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if len(password) < 8 {
		return nil, nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, nil, err
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, pair, nil
}

// Login verifies the credentials and returns the user with a fresh token
// pair. Unknown usernames and wrong passwords both yield
// ErrInvalidCredentials; a correct password on a deactivated account yields
// ErrAccountDisabled.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, *TokenPair, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrAccountDisabled
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new access/refresh pair
// (rotation). It rejects access tokens presented as refresh tokens, tokens
// for missing or deactivated users, and tokens issued before the user's
// invalidation watermark.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	if claims.Type != auth.TokenTypeRefresh {
		return nil, auth.ErrInvalidToken
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	// Rotation watermark: a logout (or forced invalidation) stamps the user
	// record, and any refresh token minted before that stamp is dead. The
	// stamp is compared at whole-second granularity because JWT iat carries
	// no sub-second precision; a token minted in the same second as the
	// stamp is treated as issued after it.
	if user.RefreshInvalidBefore != nil && claims.IssuedAt != nil &&
		claims.IssuedAt.Time.Before(user.RefreshInvalidBefore.Truncate(time.Second)) {
		return nil, auth.ErrInvalidToken
	}

	return s.issuePair(user)
}

// Logout invalidates all refresh tokens issued to the user before now by
// moving the rotation watermark. Access tokens remain valid until expiry
// (stateless design).
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.store.InvalidateRefreshTokens(ctx, userID)
}

// VerifyAccess validates a bearer token and confirms it is an access token.
// Refresh tokens presented as bearer credentials fail identically to
// malformed ones.
func (s *AuthService) VerifyAccess(tokenStr string) (*auth.Claims, error) {
	claims, err := s.tokens.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Type != auth.TokenTypeAccess {
		return nil, auth.ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) issuePair(user *model.User) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(user)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
