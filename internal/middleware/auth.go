package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"loralinka/internal/auth"

	"go.uber.org/zap"
)

const APIKeyHeader = "X-API-Key"

type contextKey string

const ContextAPIKey contextKey = "apiKey"

type AuthMiddleware struct {
	apiKey string
	logr   *zap.Logger
}

// NewAuthMiddleware creates the API key middleware for the configured key
func NewAuthMiddleware(apiKey string, logr *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{apiKey: apiKey, logr: logr}
}

// APIKey rejects requests without the configured X-API-Key and stores the key
// on the request context for the rate limiter.
func (m *AuthMiddleware) APIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			writeDetail(w, http.StatusUnauthorized, "API Key required")
			return
		}
		if !auth.KeyMatches(key, m.apiKey) {
			m.logr.Warn("invalid api key", zap.String("remote_addr", r.RemoteAddr), zap.String("path", r.URL.Path))
			writeDetail(w, http.StatusUnauthorized, "Invalid API Key")
			return
		}

		ctx := context.WithValue(r.Context(), ContextAPIKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// APIKeyFromContext returns the key accepted by APIKey, if any.
func APIKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(ContextAPIKey).(string)
	return key
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
