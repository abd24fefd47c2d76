// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"notepress/internal/session"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// IdentityKey is the context key for the resolved session identity.
	IdentityKey contextKey = "identity"

	// TokenKey is the context key for the raw bearer token. The profile
	// update handler needs it to rewrite the presented token's snapshot.
	TokenKey contextKey = "token"
)

// LoadIdentity extracts the bearer token from the Authorization header,
// resolves it against the session store, and puts both the token and the
// identity in the request context. A missing, unknown, or expired token
// passes through as anonymous; this middleware does NOT enforce
// authentication. A session store failure is not an absent token: the
// request aborts with 500 rather than downgrading a valid session to
// anonymous.
func LoadIdentity(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ident, err := store.Get(r.Context(), token)
			if err != nil {
				slog.Error("session lookup failed", "error", err)
				writeJSONError(w, http.StatusInternalServerError, "Internal server error.")
				return
			}

			if ident != nil {
				ctx := context.WithValue(r.Context(), IdentityKey, ident)
				ctx = context.WithValue(ctx, TokenKey, token)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth responds 401 for requests with no resolved identity.
// Must be applied after LoadIdentity in the middleware chain.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromCtx(r.Context()) == nil {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAdmin responds 403 if the authenticated identity is not an admin.
// Must be applied after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := IdentityFromCtx(r.Context())
		if ident == nil || !ident.IsAdmin() {
			writeJSONError(w, http.StatusForbidden, "admin role required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// IdentityFromCtx extracts the session identity from the request context.
// Returns nil if no identity is loaded (request is anonymous).
func IdentityFromCtx(ctx context.Context) *session.Identity {
	ident, _ := ctx.Value(IdentityKey).(*session.Identity)
	return ident
}

// TokenFromCtx extracts the raw bearer token from the request context.
func TokenFromCtx(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}

// bearerToken returns the token from an "Authorization: Bearer <tok>"
// header, or "" when absent or malformed.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// writeJSONError writes the standard {"error": msg} body used across the API.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
