package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/middleware"
	promexport "github.com/MrEthical07/adminauth/metrics/export/prometheus"
	"github.com/MrEthical07/adminauth/permission"
)

// NewRouter wires every route behind the Gate.
//
// Middleware order: Gate (caller resolution, rate limit) → Require* guards
// → handler. /health and /metrics sit outside the Gate so probes are never
// rate limited.
func NewRouter(h *Handler, gate *middleware.Gate, metrics http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", h.Health)
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(gate.Handler)

		r.Route("/api/v1/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)
			r.Post("/logout", h.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/me", h.Me)
				r.Post("/logout-all", h.LogoutAll)
				r.Post("/change-password", h.ChangeOwnPassword)
			})
		})

		r.Route("/api/v1/users", func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.With(gate.RequirePermission("users", "write", nil)).Post("/", h.CreateUser)

			r.Route("/{id}", func(r chi.Router) {
				r.With(gate.RequirePermission("users", "read", targetID)).Get("/", h.GetUser)
				r.With(gate.RequirePermission("sessions", "read", targetID)).Get("/sessions", h.ListSessions)
				r.With(gate.RequirePermission("sessions", "revoke", nil)).Delete("/sessions", h.RevokeSessions)

				r.Group(func(r chi.Router) {
					r.Use(gate.RequirePermission("users", "manage", nil))
					r.Post("/disable", h.DisableUser)
					r.Post("/enable", h.EnableUser)
					r.Post("/unlock", h.UnlockUser)
					r.Put("/password", h.ResetPassword)
				})

				r.With(gate.RequirePermission("roles", "manage", nil)).Put("/roles/{role}", h.AssignRole)
				r.With(gate.RequirePermission("roles", "manage", nil)).Delete("/roles/{role}", h.RemoveRole)
			})
		})

		r.With(middleware.RequireAuth, middleware.RequireRole(permission.RoleAdmin, permission.RoleSuperAdmin),
			gate.RequirePermission("audit", "read", nil)).Get("/api/v1/audit", h.ListAudit)
	})

	return r
}

func targetID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// MetricsHandler serves the engine's Prometheus collector.
func MetricsHandler(engine *adminauth.Engine) http.Handler {
	return promexport.Handler(engine)
}
