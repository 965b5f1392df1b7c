package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/streamhub/backend/internal/models"
)

func testIssuer() *TokenIssuer {
	return NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	issuer := testIssuer()
	user := models.User{ID: "user-1", Username: "ann", Email: "a@x.com", FullName: "Ann Example"}

	token, expiresAt, err := issuer.IssueAccessToken(user)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if token == "" {
		t.Fatal("expected a signed token")
	}
	if remaining := time.Until(expiresAt); remaining < 14*time.Minute {
		t.Fatalf("unexpected expiry window %v", remaining)
	}

	claims, err := issuer.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.Subject != user.ID {
		t.Fatalf("expected subject %q got %q", user.ID, claims.Subject)
	}
	if claims.Username != "ann" || claims.Email != "a@x.com" {
		t.Fatalf("unexpected denormalized claims: %+v", claims)
	}
}

func TestVerifyAccessTokenRejectsGarbage(t *testing.T) {
	issuer := testIssuer()

	if _, err := issuer.VerifyAccessToken("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken got %v", err)
	}
}

func TestVerifyAccessTokenRejectsExpired(t *testing.T) {
	issuer := testIssuer()
	issuer.NowFunc = func() time.Time { return time.Now().UTC().Add(-time.Hour) }

	token, _, err := issuer.IssueAccessToken(models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	issuer.NowFunc = nil
	if _, err := issuer.VerifyAccessToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token got %v", err)
	}
}

func TestTokenKindsUseDistinctSecrets(t *testing.T) {
	issuer := testIssuer()

	refresh, _, err := issuer.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if _, err := issuer.VerifyAccessToken(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token must not verify as access token, got %v", err)
	}

	access, _, err := issuer.IssueAccessToken(models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if _, err := issuer.VerifyRefreshToken(access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token must not verify as refresh token, got %v", err)
	}
}

func TestRefreshTokensAreUnique(t *testing.T) {
	issuer := testIssuer()

	first, _, err := issuer.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	second, _, err := issuer.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if first == second {
		t.Fatal("consecutive refresh tokens must differ")
	}
}

func TestHashPasswordNeverStoresPlaintext(t *testing.T) {
	hash, err := HashPassword("Secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "Secret1" {
		t.Fatal("hash equals the plaintext")
	}
	if !CheckPassword(hash, "Secret1") {
		t.Fatal("expected correct password to verify")
	}
	if CheckPassword(hash, "secret1") {
		t.Fatal("expected wrong password to fail")
	}
}
