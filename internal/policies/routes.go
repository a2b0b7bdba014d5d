package policies

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers policy routes. The caller is expected to wrap the
// router in the platform admin guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/policies", h.Create)
	r.Get("/policies", h.List)
	r.Get("/policies/{id}", h.Show)
	r.Patch("/policies/{id}", h.Update)
	r.Delete("/policies/{id}", h.Delete)
	r.Post("/policies/{id}/permissions", h.AssignPermissions)
	r.Get("/policies/{id}/permissions", h.EffectivePermissions)
	r.Delete("/policies/{id}/permissions/{permissionID}", h.RevokePermission)
}
