package memberships

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the membership routes. The caller mounts them under
// /tenants/{tenantID} with tenant access control applied.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/members", func(r chi.Router) {
		r.Post("/", h.Add)
		r.Get("/", h.List)
		r.Get("/{userID}", h.Show)
		r.Patch("/{userID}", h.Update)
		r.Delete("/{userID}", h.Remove)
	})
}
