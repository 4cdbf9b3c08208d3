// Package httpapi exposes the fittrack REST API over chi and applies the
// authentication and authorization pipeline to each route.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/fittrack/internal/server/guard"
	"github.com/dmitrijs2005/fittrack/internal/server/models"
)

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID, AccessLog(h.log), Recover(h.errs))
	r.NotFound(h.notFound)

	r.Get("/healthz", h.healthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if h.limiter != nil {
					r.Use(h.limiter.Middleware)
				}
				r.Post("/register", h.register)
				r.Post("/login", h.login)
			})
			r.Post("/logout", h.logout)
			r.With(h.guard.Protect()).Get("/me", h.me)
		})

		r.Route("/profile/{userId}", func(r chi.Router) {
			r.Use(h.guard.Protect(guard.RequireOwnershipOrAdmin(guard.URLParam("userId"))))
			r.Get("/", h.getProfile)
			r.Put("/", h.updateProfile)
			r.Post("/avatar", h.avatarUpload)
		})

		r.Route("/exercises", func(r chi.Router) {
			r.With(h.guard.Optional()).Get("/", h.listExercises)
			r.With(h.guard.Protect()).Post("/", h.createExercise)
			r.With(h.guard.Protect(
				guard.RequireOwnershipOrAdmin(h.exercises.OwnerFromRoute("exerciseId")),
			)).Delete("/{exerciseId}", h.deleteExercise)
		})

		r.With(h.guard.Protect(guard.RequireRole(models.RoleAdmin))).Get("/admin/users", h.listUsers)
	})

	return r
}
