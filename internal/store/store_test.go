package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/floodgatehq/floodgate/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Driver: "sqlite"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *Store, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$10$fakefakefakefakefakefake",
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if err := s.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return user
}

// ---------- users ----------

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := seedUser(t, s, "alice")
	if user.ID == "" {
		t.Fatal("expected generated ID")
	}
	if user.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}

	got, err := s.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "alice" || got.Email != "alice@example.com" {
		t.Errorf("got %q/%q", got.Username, got.Email)
	}

	byName, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if byName.ID != user.ID {
		t.Errorf("ID mismatch: %q vs %q", byName.ID, user.ID)
	}

	byEmail, err := s.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("ID mismatch: %q vs %q", byEmail.ID, user.ID)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetUser(context.Background(), "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDuplicateUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "alice")

	dup := &model.User{
		Username:     "alice",
		Email:        "other@example.com",
		PasswordHash: "x",
		IsActive:     true,
	}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, ErrDuplicateUsername) {
		t.Errorf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "alice")

	dup := &model.User{
		Username:     "bob",
		Email:        "alice@example.com",
		PasswordHash: "x",
		IsActive:     true,
	}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "alice")

	role := model.RoleAdmin
	inactive := false
	updated, err := s.UpdateUser(ctx, user.ID, model.UserUpdate{Role: &role, IsActive: &inactive})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Role != model.RoleAdmin {
		t.Errorf("Role: got %q, want admin", updated.Role)
	}
	if updated.IsActive {
		t.Error("expected IsActive false")
	}

	// Partial update leaves the other field alone.
	active := true
	updated, err = s.UpdateUser(ctx, user.ID, model.UserUpdate{IsActive: &active})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Role != model.RoleAdmin {
		t.Errorf("Role after partial update: got %q, want admin", updated.Role)
	}
	if !updated.IsActive {
		t.Error("expected IsActive true")
	}
}

func TestUpdateUserNotFound(t *testing.T) {
	s := newTestStore(t)

	role := model.RoleAdmin
	if _, err := s.UpdateUser(context.Background(), "missing", model.UserUpdate{Role: &role}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInvalidateRefreshTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "alice")

	if user.RefreshInvalidBefore != nil {
		t.Fatal("fresh user should have no watermark")
	}

	if err := s.InvalidateRefreshTokens(ctx, user.ID); err != nil {
		t.Fatalf("InvalidateRefreshTokens: %v", err)
	}

	got, err := s.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.RefreshInvalidBefore == nil {
		t.Fatal("expected watermark to be set")
	}
	if time.Since(*got.RefreshInvalidBefore) > time.Minute {
		t.Errorf("watermark too old: %v", got.RefreshInvalidBefore)
	}

	if err := s.InvalidateRefreshTokens(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ---------- api keys ----------

func TestAPIKeyLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "alice")

	key := &model.APIKey{
		UserID:    user.ID,
		Name:      "ci",
		KeyHash:   "deadbeef",
		KeyPrefix: "fg_live_dead",
		RateLimit: 1000,
		IsActive:  true,
	}
	if err := s.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	if key.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := s.GetAPIKeyByHash(ctx, "deadbeef")
	if err != nil {
		t.Fatalf("GetAPIKeyByHash: %v", err)
	}
	if got.Name != "ci" || got.UserID != user.ID {
		t.Errorf("got name=%q user=%q", got.Name, got.UserID)
	}
	if len(got.Permissions) != 1 || got.Permissions[0] != "*" {
		t.Errorf("default permissions: got %v, want [*]", got.Permissions)
	}

	list, err := s.ListAPIKeysByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListAPIKeysByUser: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 key, got %d", len(list))
	}

	if err := s.RevokeAPIKeyOwned(ctx, key.ID, user.ID); err != nil {
		t.Fatalf("RevokeAPIKeyOwned: %v", err)
	}
	got, err = s.GetAPIKeyByHash(ctx, "deadbeef")
	if err != nil {
		t.Fatalf("GetAPIKeyByHash after revoke: %v", err)
	}
	if got.IsActive {
		t.Error("expected key inactive after revoke")
	}

	// Revoked keys stay listed for audit.
	list, err = s.ListAPIKeysByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListAPIKeysByUser: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected revoked key to remain listed, got %d", len(list))
	}
}

func TestRevokeAPIKeyWrongOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	key := &model.APIKey{UserID: alice.ID, Name: "k", KeyHash: "h1", KeyPrefix: "p1", RateLimit: 1, IsActive: true}
	if err := s.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	// Bob cannot revoke Alice's key, and cannot tell it exists.
	if err := s.RevokeAPIKeyOwned(ctx, key.ID, bob.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	got, err := s.GetAPIKeyByHash(ctx, "h1")
	if err != nil {
		t.Fatalf("GetAPIKeyByHash: %v", err)
	}
	if !got.IsActive {
		t.Error("key should remain active after failed cross-owner revoke")
	}
}

func TestUpdateAPIKeyLastUsed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "alice")

	key := &model.APIKey{UserID: user.ID, Name: "k", KeyHash: "h1", KeyPrefix: "p1", RateLimit: 1, IsActive: true}
	if err := s.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	if err := s.UpdateAPIKeyLastUsed(ctx, key.ID); err != nil {
		t.Fatalf("UpdateAPIKeyLastUsed: %v", err)
	}
	got, err := s.GetAPIKeyByHash(ctx, "h1")
	if err != nil {
		t.Fatalf("GetAPIKeyByHash: %v", err)
	}
	if got.LastUsed == nil {
		t.Fatal("expected LastUsed to be set")
	}
}

// ---------- services ----------

func TestServiceRegistry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	svc := &model.ServiceConfig{
		Name:            "billing",
		BaseURL:         "http://billing.internal:9000",
		HealthCheckPath: "/health",
		AuthType:        "none",
		IsActive:        true,
	}
	if err := s.CreateService(ctx, svc); err != nil {
		t.Fatalf("CreateService: %v", err)
	}

	dup := &model.ServiceConfig{Name: "billing", BaseURL: "http://other:1"}
	if err := s.CreateService(ctx, dup); !errors.Is(err, ErrDuplicateService) {
		t.Errorf("expected ErrDuplicateService, got %v", err)
	}

	got, err := s.GetServiceByName(ctx, "billing")
	if err != nil {
		t.Fatalf("GetServiceByName: %v", err)
	}
	if got.BaseURL != "http://billing.internal:9000" {
		t.Errorf("BaseURL: got %q", got.BaseURL)
	}

	got.BaseURL = "http://billing.internal:9001"
	if err := s.UpdateService(ctx, got); err != nil {
		t.Fatalf("UpdateService: %v", err)
	}
	got, err = s.GetServiceByName(ctx, "billing")
	if err != nil {
		t.Fatalf("GetServiceByName: %v", err)
	}
	if got.BaseURL != "http://billing.internal:9001" {
		t.Errorf("BaseURL after update: got %q", got.BaseURL)
	}

	list, err := s.ListServices(ctx)
	if err != nil {
		t.Fatalf("ListServices: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 service, got %d", len(list))
	}

	if err := s.DeleteService(ctx, "billing"); err != nil {
		t.Fatalf("DeleteService: %v", err)
	}
	if err := s.DeleteService(ctx, "billing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

// ---------- request logs ----------

func TestRequestLogAppendAndPage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		entry := &model.RequestLog{
			RequestID:      "req-" + string(rune('a'+i)),
			Method:         "GET",
			Path:           "/api/user",
			StatusCode:     200,
			ResponseTimeMs: 1.5,
			IPAddress:      "127.0.0.1",
			UserAgent:      "test",
		}
		if err := s.InsertRequestLog(ctx, entry); err != nil {
			t.Fatalf("InsertRequestLog: %v", err)
		}
	}

	logs, total, err := s.ListRequestLogs(ctx, 3, 0)
	if err != nil {
		t.Fatalf("ListRequestLogs: %v", err)
	}
	if total != 5 {
		t.Errorf("total: got %d, want 5", total)
	}
	if len(logs) != 3 {
		t.Errorf("page size: got %d, want 3", len(logs))
	}

	logs, _, err = s.ListRequestLogs(ctx, 3, 3)
	if err != nil {
		t.Fatalf("ListRequestLogs offset: %v", err)
	}
	if len(logs) != 2 {
		t.Errorf("second page: got %d, want 2", len(logs))
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
