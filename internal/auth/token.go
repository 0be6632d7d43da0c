package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/floodgatehq/floodgate/internal/model"
)

// Token types carried in the "type" claim. The type is checked explicitly at
// every verification site; it is never inferred from expiry.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Default token lifetimes.
const (
	AccessTokenTTL  = 24 * time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// ErrInvalidToken is the single sentinel returned for any verification
// failure: bad signature, malformed envelope, or expiry. Callers branch on
// validity, not on the reason.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload embedded in every Floodgate token.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies signed, time-bounded access and refresh
// tokens. The signing secret is injected once at construction and is
// read-only thereafter.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService creates a TokenService with the default lifetimes.
func NewTokenService(secret string) *TokenService {
	return NewTokenServiceTTL(secret, AccessTokenTTL, RefreshTokenTTL)
}

// NewTokenServiceTTL creates a TokenService with explicit lifetimes.
// Non-positive durations fall back to the defaults.
func NewTokenServiceTTL(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = AccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = RefreshTokenTTL
	}
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccess mints a short-lived access token for the user.
func (t *TokenService) IssueAccess(user *model.User) (string, error) {
	return t.issue(user, TokenTypeAccess, t.accessTTL)
}

// IssueRefresh mints a longer-lived refresh token for the user.
func (t *TokenService) IssueRefresh(user *model.User) (string, error) {
	return t.issue(user, TokenTypeRefresh, t.refreshTTL)
}

func (t *TokenService) issue(user *model.User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Type:     tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "floodgate",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify checks the token's signature and expiry and returns its claims.
// All failures collapse into ErrInvalidToken; the parse error is discarded
// here and logged by callers that care.
func (t *TokenService) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
