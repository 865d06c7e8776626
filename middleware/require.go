package middleware

import (
	"net/http"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/permission"
)

// RequireAuth rejects requests that reached it without a principal. It must
// run behind Gate.Handler.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := adminauth.PrincipalFromContext(r.Context()); !ok {
			WriteError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission admits principals that hold RESOURCE_ACTION. target,
// when non-nil, extracts the id of the account the request acts on so users
// can read and write their own record. Denials are audited by the engine.
func (g *Gate) RequirePermission(resource, action string, target func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := adminauth.PrincipalFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			req := permission.Need(resource, action)
			if target != nil {
				req = req.On(target(r))
			}
			if err := g.Engine.Authorize(r.Context(), p, req); err != nil {
				WriteError(w, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole admits principals holding any of roles. Names may omit the
// ROLE_ prefix.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := adminauth.PrincipalFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !p.HasAnyRole(roles...) {
				WriteError(w, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
