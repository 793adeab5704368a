package auth

import (
	"testing"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	token, expiresAt, err := tm.GenerateToken("u1", domain.RoleModerator)
	if err != nil {
		t.Fatal(err)
	}
	if expiresAt.IsZero() {
		t.Fatal("expected expiry")
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != "u1" || claims.Role != domain.RoleModerator {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", 60).GenerateToken("u1", domain.RoleUser)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewTokenManager("secret-b", 60).ParseToken(token); err == nil {
		t.Fatal("expected signature verification failure")
	}
}

func TestTokenRejectsGarbage(t *testing.T) {
	if _, err := NewTokenManager("s", 60).ParseToken("not.a.token"); err == nil {
		t.Fatal("expected parse failure")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := ComparePassword(hash, "hunter22"); err != nil {
		t.Fatal("expected matching password")
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch")
	}
}
