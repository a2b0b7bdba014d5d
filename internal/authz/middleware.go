package authz

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tessera-io/tessera/internal/identity"
	"github.com/tessera-io/tessera/internal/memberships"
	"github.com/tessera-io/tessera/internal/permissions"
	"github.com/tessera-io/tessera/internal/platform/httpx"
)

// Middleware wires authorization guards for HTTP handlers.
type Middleware struct {
	Logger  *slog.Logger
	Admins  AdminChecker
	Members MembershipFinder
}

// RequirePlatformAdmin rejects callers absent from the platform admin
// registry. Lookup failures deny.
func (m Middleware) RequirePlatformAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := identity.PrincipalFromContext(r.Context())
		if !ok {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		admin, err := m.Admins.IsPlatformAdmin(r.Context(), principal.UserID)
		if err != nil {
			m.Logger.Error("platform admin guard", slog.Any("error", err))
			httpx.RespondError(w, fmt.Errorf("%w: platform admin lookup: %v", httpx.ErrStorageUnavailable, err))
			return
		}
		if !admin {
			httpx.RespondError(w, fmt.Errorf("%w: platform admin access required", httpx.ErrForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTenantAccess admits platform admins and active members of the
// tenant named in the {tenantID} route parameter.
func (m Middleware) RequireTenantAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := identity.PrincipalFromContext(r.Context())
		if !ok {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: invalid tenant id", httpx.ErrValidation))
			return
		}

		admin, err := m.Admins.IsPlatformAdmin(r.Context(), principal.UserID)
		if err != nil {
			m.Logger.Error("tenant access guard", slog.Any("error", err))
			httpx.RespondError(w, fmt.Errorf("%w: platform admin lookup: %v", httpx.ErrStorageUnavailable, err))
			return
		}
		if admin {
			next.ServeHTTP(w, r)
			return
		}

		member, err := m.Members.Get(r.Context(), tenantID, principal.UserID)
		if err != nil || member.Status != memberships.StatusActive {
			httpx.RespondError(w, fmt.Errorf("%w: no active membership in this tenant", httpx.ErrForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission gates a route on a single permission key resolved
// against the {tenantID} route parameter.
func RequirePermission(resolver *Resolver, key permissions.Key) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := identity.PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
			if err != nil {
				httpx.RespondError(w, fmt.Errorf("%w: invalid tenant id", httpx.ErrValidation))
				return
			}
			authorized, err := resolver.Authorize(r.Context(), principal.UserID, tenantID, key)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			if !authorized {
				httpx.RespondError(w, fmt.Errorf("%w: missing permission %s", httpx.ErrForbidden, key))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
