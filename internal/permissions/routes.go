package permissions

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers permission catalog routes. The caller is expected to
// wrap the router in the platform admin guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/permissions", h.Create)
	r.Get("/permissions", h.List)
	r.Get("/permissions/{id}", h.Show)
	r.Delete("/permissions/{id}", h.Delete)
}
