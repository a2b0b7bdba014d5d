package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tessera-io/tessera/internal/authz"
	"github.com/tessera-io/tessera/internal/identity"
	"github.com/tessera-io/tessera/internal/memberships"
	"github.com/tessera-io/tessera/internal/permissions"
	"github.com/tessera-io/tessera/internal/platformadmin"
	"github.com/tessera-io/tessera/internal/policies"
	"github.com/tessera-io/tessera/internal/roles"
	"github.com/tessera-io/tessera/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Config *Config

	AuthzHandler       *authz.Handler
	PermissionsHandler *permissions.Handler
	PoliciesHandler    *policies.Handler
	RolesHandler       *roles.Handler
	AdminsHandler      *platformadmin.Handler
	MembershipsHandler *memberships.Handler
	JobsHandler        *jobs.Handler

	Guards authz.Middleware
}

// NewRouter constructs the chi.Router with Tessera defaults. The platform
// subtree is reachable only by platform admins; tenant subtrees require an
// active membership or admin status.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Guards.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	header := identity.DefaultHeader
	if params.Config != nil && params.Config.IdentityHeader != "" {
		header = params.Config.IdentityHeader
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(identity.Middleware(header))

		params.AuthzHandler.MountRoutes(r)
		r.Get("/platform/admins/check", params.AdminsHandler.Check)

		r.Route("/platform", func(r chi.Router) {
			r.Use(params.Guards.RequirePlatformAdmin)
			params.AdminsHandler.MountRoutes(r)
			params.PermissionsHandler.MountRoutes(r)
			params.PoliciesHandler.MountRoutes(r)
			params.RolesHandler.MountRoutes(r)
			if params.JobsHandler != nil {
				params.JobsHandler.MountRoutes(r)
			}
		})

		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			r.Use(params.Guards.RequireTenantAccess)
			params.MembershipsHandler.MountRoutes(r)
		})
	})

	return r
}
