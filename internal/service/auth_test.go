package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/floodgatehq/floodgate/internal/auth"
	"github.com/floodgatehq/floodgate/internal/model"
	"github.com/floodgatehq/floodgate/internal/store"
)

func newTestAuth(t *testing.T) (*AuthService, *store.Store) {
	t.Helper()
	st, err := store.Open(store.Config{Driver: "sqlite"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewTokenService("test-secret-key")
	return NewAuthService(st, tokens, logger), st
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != model.RoleUser {
		t.Errorf("Role: got %q, want user", user.Role)
	}
	if user.PasswordHash == "password123" {
		t.Fatal("password must not be stored in plaintext")
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}

	got, pair2, err := svc.Login(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("ID mismatch: %q vs %q", got.ID, user.ID)
	}
	if pair2.AccessToken == "" {
		t.Fatal("expected access token from login")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	cases := []struct {
		name                      string
		username, email, password string
	}{
		{"short username", "al", "a@example.com", "password123"},
		{"bad email", "alice", "not-an-email", "password123"},
		{"short password", "alice", "a@example.com", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := svc.Register(ctx, tc.username, tc.email, tc.password); !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestRegisterDuplicates(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "alice", "alice@example.com", "password123"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := svc.Register(ctx, "alice", "other@example.com", "password123"); !errors.Is(err, store.ErrDuplicateUsername) {
		t.Errorf("expected ErrDuplicateUsername, got %v", err)
	}
	if _, _, err := svc.Register(ctx, "bob", "alice@example.com", "password123"); !errors.Is(err, store.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestLoginFailures(t *testing.T) {
	svc, st := newTestAuth(t)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "nobody", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "alice", "wrongpassword"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}

	inactive := false
	if _, err := st.UpdateUser(ctx, user.ID, model.UserUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if _, _, err := svc.Login(ctx, "alice", "password123"); !errors.Is(err, ErrAccountDisabled) {
		t.Errorf("disabled account: expected ErrAccountDisabled, got %v", err)
	}
}

func TestRefreshRotation(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.AccessToken == "" || rotated.RefreshToken == "" {
		t.Fatal("expected a fresh token pair")
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// An access token must never be accepted where a refresh token is
	// expected, regardless of signature validity.
	if _, err := svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	svc, _ := newTestAuth(t)

	if _, err := svc.Refresh(context.Background(), "not.a.token"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRefreshAfterLogout(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// JWT iat has one-second precision; make sure the logout watermark lands
	// strictly after the token's issue instant.
	time.Sleep(1100 * time.Millisecond)

	if err := svc.Logout(ctx, user.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("expected pre-logout refresh token to be dead, got %v", err)
	}

	// A fresh login works and its new refresh token is usable.
	_, pair2, err := svc.Login(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("Login after logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, pair2.RefreshToken); err != nil {
		t.Errorf("post-logout refresh token should work, got %v", err)
	}
}

func TestRefreshImmediatelyAfterLogout(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Logout and log back in within the same second. JWT iat has one-second
	// precision, so the watermark must not outrank a token minted in the
	// same second it was set.
	if err := svc.Logout(ctx, user.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	_, pair, err := svc.Login(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := svc.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Errorf("refresh token minted after logout must stay valid, got %v", err)
	}
}

func TestRefreshDisabledUser(t *testing.T) {
	svc, st := newTestAuth(t)
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	inactive := false
	if _, err := st.UpdateUser(ctx, user.ID, model.UserUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrAccountDisabled) {
		t.Errorf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestVerifyAccessRejectsRefreshToken(t *testing.T) {
	svc, _ := newTestAuth(t)

	_, pair, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.VerifyAccess(pair.AccessToken); err != nil {
		t.Errorf("VerifyAccess(access): %v", err)
	}
	if _, err := svc.VerifyAccess(pair.RefreshToken); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("refresh-as-bearer: expected ErrInvalidToken, got %v", err)
	}
}
