package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	requestIDKey
)

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	Verify(token string) (userID string, ok bool)
}

// StaticTokens is a fixed token to user id table.
type StaticTokens map[string]string

func (s StaticTokens) Verify(token string) (string, bool) {
	userID, ok := s[token]
	return userID, ok && userID != ""
}

// ParseStaticTokens parses "token:user,token:user". Malformed pairs are
// skipped.
func ParseStaticTokens(raw string) StaticTokens {
	tokens := make(StaticTokens)
	for _, pair := range strings.Split(raw, ",") {
		token, userID, found := strings.Cut(strings.TrimSpace(pair), ":")
		if !found || token == "" || userID == "" {
			continue
		}
		tokens[token] = userID
	}
	return tokens
}

// BearerAuthMiddleware rejects requests without a valid bearer token and
// stores the resolved user id in the request context.
func BearerAuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				_ = respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
				return
			}
			userID, ok := verifier.Verify(token)
			if !ok {
				_ = respondError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getUserIDFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value(userIDKey).(string); ok {
		return userID
	}
	return ""
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}
