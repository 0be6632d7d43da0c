package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/floodgatehq/floodgate/internal/auth"
	"github.com/floodgatehq/floodgate/internal/model"
	"github.com/floodgatehq/floodgate/internal/store"
)

// RawKeyPrefix is the fixed literal marker at the start of every raw API key
// secret, kept human-recognizable for operator legibility.
const RawKeyPrefix = "fg_live_"

// DefaultRateLimit is the declared requests/hour budget assigned to keys
// created without an explicit limit.
const DefaultRateLimit = 1000

var (
	ErrKeyRevoked = errors.New("api key revoked")
	ErrKeyExpired = errors.New("api key expired")
)

// APIKeyService issues, revokes, and validates programmatic API keys. Only
// the SHA-256 hash and a short display prefix of each secret are persisted;
// the raw secret exists exactly once, in the Issue return value.
type APIKeyService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewAPIKeyService creates a new APIKeyService.
func NewAPIKeyService(st *store.Store, logger *slog.Logger) *APIKeyService {
	return &APIKeyService{store: st, logger: logger}
}

// Issue generates a fresh high-entropy secret, persists its hash, and returns
// the record together with the raw secret. The caller must show the secret to
// the user immediately; it is not retrievable afterwards. expiresInDays == 0
// means the key never expires.
func (s *APIKeyService) Issue(ctx context.Context, ownerID, name string, rateLimit, expiresInDays int) (*model.APIKey, string, error) {
	if name == "" {
		return nil, "", fmt.Errorf("%w: key name is required", ErrValidation)
	}
	if rateLimit <= 0 {
		rateLimit = DefaultRateLimit
	}

	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return nil, "", fmt.Errorf("generate key: %w", err)
	}
	rawSecret := RawKeyPrefix + hex.EncodeToString(rawBytes)

	var expiresAt *time.Time
	if expiresInDays > 0 {
		t := time.Now().UTC().Add(time.Duration(expiresInDays) * 24 * time.Hour)
		expiresAt = &t
	}

	key := &model.APIKey{
		UserID:    ownerID,
		Name:      name,
		KeyHash:   auth.HashKey(rawSecret),
		KeyPrefix: rawSecret[:model.KeyPrefixLen],
		RateLimit: rateLimit,
		IsActive:  true,
		ExpiresAt: expiresAt,
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, "", err
	}

	s.logger.Info("api key issued", "key_id", key.ID, "user_id", ownerID, "prefix", key.KeyPrefix)
	return key, rawSecret, nil
}

// Revoke soft-revokes a key owned by requestingUserID. A key that does not
// exist and a key owned by someone else both report store.ErrNotFound, so the
// caller learns nothing about other users' keys.
func (s *APIKeyService) Revoke(ctx context.Context, id, requestingUserID string) error {
	if err := s.store.RevokeAPIKeyOwned(ctx, id, requestingUserID); err != nil {
		return err
	}
	s.logger.Info("api key revoked", "key_id", id, "user_id", requestingUserID)
	return nil
}

// ListByOwner returns the owner's keys, newest first, revoked ones included.
func (s *APIKeyService) ListByOwner(ctx context.Context, userID string) ([]model.APIKey, error) {
	return s.store.ListAPIKeysByUser(ctx, userID)
}

// Validate checks a raw secret against stored hashes and enforces the
// revocation and expiry rules at the verification boundary. On success the
// key's last_used timestamp is bumped (fire and forget).
func (s *APIKeyService) Validate(ctx context.Context, rawSecret string) (*model.APIKey, error) {
	key, err := s.store.GetAPIKeyByHash(ctx, auth.HashKey(rawSecret))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !key.IsActive {
		return nil, ErrKeyRevoked
	}
	if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now()) {
		return nil, ErrKeyExpired
	}

	go func() {
		if err := s.store.UpdateAPIKeyLastUsed(context.Background(), key.ID); err != nil {
			s.logger.Debug("update api key last used", "key_id", key.ID, "error", err)
		}
	}()

	return key, nil
}
