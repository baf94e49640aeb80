package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"expense-tracker-server/src/auth"
	"expense-tracker-server/src/models"
	"expense-tracker-server/src/util"
)

type contextKey string

const (
	userIDKey   contextKey = "user_id"
	usernameKey contextKey = "username"
)

// TokenVersions resolves the current token version of a user.
type TokenVersions interface {
	TokenVersion(ctx context.Context, userID string) (int, error)
}

// WithCaller stores the authenticated caller in ctx.
func WithCaller(ctx context.Context, userID, username string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, usernameKey, username)
}

// UserID returns the caller identity set by JWTAuthMiddleware.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func Username(ctx context.Context) string {
	name, _ := ctx.Value(usernameKey).(string)
	return name
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing token")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" || token == header {
		return "", fmt.Errorf("malformed authorization header")
	}
	return token, nil
}

// JWTAuthMiddleware verifies the access token and rejects tokens issued
// before the user's last global sign-out.
func JWTAuthMiddleware(tokens *auth.Manager, versions TokenVersions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := BearerToken(r)
			if err != nil {
				util.WriteError(w, http.StatusUnauthorized, "Unauthorized", err)
				return
			}

			claims, err := tokens.Parse(tokenString, auth.UseAccess)
			if err != nil {
				util.WriteError(w, http.StatusUnauthorized, "Unauthorized", err)
				return
			}

			version, err := versions.TokenVersion(r.Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, models.ErrUserNotFound) {
					util.WriteError(w, http.StatusUnauthorized, "Unauthorized", err)
					return
				}
				log.Printf("ERROR: Failed to load token version for user %s: %v", claims.Subject, err)
				util.WriteError(w, http.StatusInternalServerError, "Failed to authorize request", err)
				return
			}
			if version != claims.Version {
				util.WriteError(w, http.StatusUnauthorized, "Unauthorized", models.ErrTokenRevoked)
				return
			}

			ctx := WithCaller(r.Context(), claims.Subject, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
