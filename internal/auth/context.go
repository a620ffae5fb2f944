package auth

import (
	"context"

	"github.com/snerberd/snerberd/internal/model"
)

type contextKey struct{}

// ContextWithAuth adds AuthContext to the context.
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, auth)
}

// AuthFromContext retrieves AuthContext from the context, or nil.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	auth, _ := ctx.Value(contextKey{}).(*model.AuthContext)
	return auth
}

// UserIDFromContext returns the authenticated user ID, or "" for anonymous requests.
// This is the identity compared against record owners.
func UserIDFromContext(ctx context.Context) string {
	if auth := AuthFromContext(ctx); auth != nil {
		return auth.UserID
	}
	return ""
}

// KeyIDFromContext returns the authenticated API key ID, or "".
func KeyIDFromContext(ctx context.Context) string {
	if auth := AuthFromContext(ctx); auth != nil {
		return auth.KeyID
	}
	return ""
}
