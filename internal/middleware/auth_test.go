package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/streamhub/backend/internal/auth"
	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/repositories"
)

type accountSourceStub struct {
	users map[string]models.User
}

func (s accountSourceStub) FindPublicByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func authFixture(t *testing.T) (*auth.TokenIssuer, accountSourceStub, string) {
	t.Helper()

	issuer := auth.NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, time.Hour)
	user := models.User{ID: "user-1", Username: "creator", Email: "creator@example.com"}

	token, _, err := issuer.IssueAccessToken(user)
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	return issuer, accountSourceStub{users: map[string]models.User{"user-1": user}}, token
}

func currentUserEcho(t *testing.T, captured *models.User) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := CurrentUser(r.Context())
		if ok {
			*captured = user
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthAcceptsCookie(t *testing.T) {
	issuer, accounts, token := authFixture(t)

	var seen models.User
	handler := Auth(issuer, accounts)(currentUserEcho(t, &seen))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if seen.ID != "user-1" {
		t.Fatalf("expected user-1 on context, got %+v", seen)
	}
}

func TestAuthAcceptsBearerHeader(t *testing.T) {
	issuer, accounts, token := authFixture(t)

	var seen models.User
	handler := Auth(issuer, accounts)(currentUserEcho(t, &seen))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if seen.ID != "user-1" {
		t.Fatalf("expected user-1 on context, got %+v", seen)
	}
}

func TestAuthPrefersCookieOverHeader(t *testing.T) {
	issuer, accounts, token := authFixture(t)

	var seen models.User
	handler := Auth(issuer, accounts)(currentUserEcho(t, &seen))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected cookie to win, got %d", rec.Code)
	}
}

func TestAuthRejectsMissingToken(t *testing.T) {
	issuer, accounts, _ := authFixture(t)

	handler := Auth(issuer, accounts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAuthRejectsForgedToken(t *testing.T) {
	issuer, accounts, _ := authFixture(t)

	forger := auth.NewTokenIssuer("other-secret", "other-refresh", 15*time.Minute, time.Hour)
	forged, _, err := forger.IssueAccessToken(models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue forged token: %v", err)
	}

	handler := Auth(issuer, accounts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a forged token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAuthRejectsDeletedAccount(t *testing.T) {
	issuer, _, token := authFixture(t)

	empty := accountSourceStub{users: map[string]models.User{}}
	handler := Auth(issuer, empty)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for an unknown subject")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestOptionalAuthPassesAnonymous(t *testing.T) {
	issuer, accounts, _ := authFixture(t)

	var seen models.User
	var ran bool
	handler := OptionalAuth(issuer, accounts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
		seen, _ = CurrentUser(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if !ran {
		t.Fatal("expected handler to run for anonymous request")
	}
	if seen.ID != "" {
		t.Fatalf("expected no user on context, got %+v", seen)
	}
}

func TestOptionalAuthAttachesUser(t *testing.T) {
	issuer, accounts, token := authFixture(t)

	var seen models.User
	handler := OptionalAuth(issuer, accounts)(currentUserEcho(t, &seen))

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if seen.ID != "user-1" {
		t.Fatalf("expected user-1 on context, got %+v", seen)
	}
}
