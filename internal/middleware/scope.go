package middleware

import (
	"net/http"

	"github.com/snerberd/snerberd/internal/auth"
	"github.com/snerberd/snerberd/internal/model"
)

// RequireScope rejects requests whose key lacks scope with 403 FORBIDDEN.
// It runs after Auth; a request with no auth context gets 401.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch authCtx := auth.AuthFromContext(r.Context()); {
			case authCtx == nil:
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "Authentication required")
			case !authCtx.HasScope(scope):
				writeError(w, http.StatusForbidden, codeForbidden, "Insufficient permissions. Required scope: "+scope)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func RequireRead() func(http.Handler) http.Handler  { return RequireScope(model.ScopeRead) }
func RequireWrite() func(http.Handler) http.Handler { return RequireScope(model.ScopeWrite) }
func RequireAdmin() func(http.Handler) http.Handler { return RequireScope(model.ScopeAdmin) }
