package auth

import (
	"strings"
	"testing"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not equal the plaintext")
	}

	if !CheckPassword("correct horse battery staple", hash) {
		t.Error("expected correct password to verify")
	}
	if CheckPassword("wrong password", hash) {
		t.Error("expected wrong password to fail")
	}
}

func TestPasswordHashesAreSalted(t *testing.T) {
	h1, err := HashPassword("samepassword")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword("samepassword")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password should differ (bcrypt salts)")
	}
}

func TestHashKeyDeterministic(t *testing.T) {
	h1 := HashKey("fg_live_abc123")
	h2 := HashKey("fg_live_abc123")
	if h1 != h2 {
		t.Error("key hashing must be deterministic for lookups")
	}
	if h1 == HashKey("fg_live_abc124") {
		t.Error("different keys must hash differently")
	}

	// sha256 hex: 64 lowercase hex chars
	if len(h1) != 64 {
		t.Errorf("hash length: got %d, want 64", len(h1))
	}
	if h1 != strings.ToLower(h1) {
		t.Error("hash should be lowercase hex")
	}
}
