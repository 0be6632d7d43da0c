// Package auth provides credential hashing and the signed-token service.
//
// Two hashing schemes are used deliberately: user passwords go through bcrypt
// (slow, salted, brute-force resistant) while API key secrets use a plain
// SHA-256 digest. Key secrets are 256-bit random values, so they only need
// non-reversibility at rest, not a slow KDF.
package auth

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash of the given password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the password matches the bcrypt hash.
// Any mismatch or malformed hash yields false; it never panics.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashKey returns the hex-encoded SHA-256 hash of a raw API key secret.
func HashKey(rawKey string) string {
	h := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(h[:])
}
