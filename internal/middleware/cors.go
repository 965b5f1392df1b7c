package middleware

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/streamhub/backend/internal/logging"
)

// CORS allows credentialed cross-origin requests from the configured frontend
// origins. Origins are comma separated; requests without an Origin header pass
// through untouched, and unknown origins are rejected before the handler runs.
func CORS(origins string) (func(http.Handler) http.Handler, error) {
	allowed := make(map[string]struct{})
	for _, origin := range strings.Split(origins, ",") {
		normalized, err := normalizeOrigin(origin)
		if err != nil {
			return nil, fmt.Errorf("parse origin %q: %w", origin, err)
		}
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			normalized, err := normalizeOrigin(origin)
			if err != nil {
				http.Error(w, "origin not allowed", http.StatusForbidden)
				return
			}
			if _, ok := allowed[normalized]; !ok {
				logging.FromContext(r.Context()).Warn("blocked cross-origin request", "origin", origin, "path", r.URL.Path)
				http.Error(w, "origin not allowed", http.StatusForbidden)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
					w.Header().Set("Access-Control-Allow-Headers", requested)
				} else {
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

func normalizeOrigin(origin string) (string, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return "", nil
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("origin must include scheme and host")
	}
	return fmt.Sprintf("%s://%s", strings.ToLower(parsed.Scheme), strings.ToLower(parsed.Host)), nil
}
