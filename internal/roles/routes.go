package roles

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers role routes. The caller is expected to wrap the
// router in the platform admin guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/roles", h.Create)
	r.Get("/roles", h.List)
	r.Get("/roles/{id}", h.Show)
	r.Patch("/roles/{id}", h.Update)
	r.Delete("/roles/{id}", h.Delete)
	r.Post("/roles/{id}/policies", h.AssignPolicies)
	r.Get("/roles/{id}/policies", h.Policies)
	r.Delete("/roles/{id}/policies/{policyID}", h.RevokePolicy)
	r.Get("/roles/{id}/permissions", h.EffectivePermissions)
}
