package authz

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the resolution endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/authorize", h.Authorize)
	r.Get("/tenants/{tenantID}/permissions", h.UserPermissions)
}
