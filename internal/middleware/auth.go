package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/streamhub/backend/internal/auth"
	"github.com/streamhub/backend/internal/logging"
	"github.com/streamhub/backend/internal/models"
)

// AccessTokenCookie is the cookie carrying the access token for browser clients.
const AccessTokenCookie = "accessToken"

type userContextKey struct{}

// CurrentUser returns the authenticated account attached by the Auth
// middleware. The second return is false on unauthenticated requests.
func CurrentUser(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(models.User)
	return user, ok
}

// WithUser attaches an authenticated account to the context. Exported for
// handler tests.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// TokenVerifier validates an access token and returns its claims.
type TokenVerifier interface {
	VerifyAccessToken(token string) (auth.AccessClaims, error)
}

// AccountSource resolves a token subject to an account without credential fields.
type AccountSource interface {
	FindPublicByID(ctx context.Context, id string) (models.User, error)
}

// Auth gates protected routes. The access token is read from the accessToken
// cookie first, then from the Authorization header; requests without a
// verifiable token are rejected with 401 before reaching the handler. The
// middleware is read-only: it never touches stored sessions.
func Auth(verifier TokenVerifier, accounts AccountSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractAccessToken(r)
			if token == "" {
				unauthorized(w, r, "missing access token")
				return
			}

			claims, err := verifier.VerifyAccessToken(token)
			if err != nil {
				logging.FromContext(r.Context()).Warn("access token rejected", "error", err)
				unauthorized(w, r, "invalid or expired access token")
				return
			}

			user, err := accounts.FindPublicByID(r.Context(), claims.Subject)
			if err != nil {
				logging.FromContext(r.Context()).Warn("access token subject unresolved", "userId", claims.Subject, "error", err)
				unauthorized(w, r, "invalid or expired access token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalAuth attaches the account when a valid access token is present but
// lets anonymous requests through. Handlers decide what anonymous callers may
// see.
func OptionalAuth(verifier TokenVerifier, accounts AccountSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractAccessToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.VerifyAccessToken(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := accounts.FindPublicByID(r.Context(), claims.Subject)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func extractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	const bearer = "Bearer "
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, bearer) {
		return strings.TrimSpace(header[len(bearer):])
	}
	return ""
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logging.FromContext(r.Context()).Error("encode unauthorized response", "error", err)
	}
}
