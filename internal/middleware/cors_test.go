package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsHandler(t *testing.T, origins string) http.Handler {
	t.Helper()

	cors, err := CORS(origins)
	if err != nil {
		t.Fatalf("CORS() error = %v", err)
	}
	return cors(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	handler := corsHandler(t, "https://app.example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentialed CORS, got %q", got)
	}
}

func TestCORSBlocksUnknownOrigin(t *testing.T) {
	handler := corsHandler(t, "https://app.example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d got %d", http.StatusForbidden, rec.Code)
	}
}

func TestCORSPassesSameOriginRequests(t *testing.T) {
	handler := corsHandler(t, "https://app.example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS headers without an Origin, got %q", got)
	}
}

func TestCORSHandlesPreflight(t *testing.T) {
	handler := corsHandler(t, "https://app.example.com,https://admin.example.com")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/videos", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d got %d", http.StatusNoContent, rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Fatal("expected allowed methods on preflight")
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, Authorization" {
		t.Fatalf("unexpected allow headers: %q", got)
	}
}

func TestCORSRejectsMalformedConfiguredOrigin(t *testing.T) {
	if _, err := CORS("not-a-url"); err == nil {
		t.Fatal("expected error for origin without scheme")
	}
}
