// Package authz resolves whether a user may perform an action inside a
// tenant, walking the role -> policy -> permission graph.
package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tessera-io/tessera/internal/memberships"
	"github.com/tessera-io/tessera/internal/permissions"
	"github.com/tessera-io/tessera/internal/platform/httpx"
)

// AdminChecker answers platform admin lookups.
type AdminChecker interface {
	IsPlatformAdmin(ctx context.Context, userID string) (bool, error)
}

// MembershipFinder looks up a user's membership within a tenant.
type MembershipFinder interface {
	Get(ctx context.Context, tenantID uuid.UUID, userID string) (memberships.Membership, error)
}

// RoleGrants resolves the transitive permission set of a role.
type RoleGrants interface {
	EffectivePermissions(ctx context.Context, roleID uuid.UUID) ([]permissions.Key, error)
}

// Grants is a user's resolved permission set within one tenant. Unrestricted
// marks platform admins, whose access is not enumerable.
type Grants struct {
	Unrestricted bool              `json:"unrestricted"`
	Permissions  []permissions.Key `json:"permissions"`
}

// Resolver answers authorization questions. Any storage failure on the
// resolution path denies the request rather than guessing.
type Resolver struct {
	logger  *slog.Logger
	admins  AdminChecker
	members MembershipFinder
	grants  RoleGrants
}

// NewResolver builds a Resolver instance.
func NewResolver(logger *slog.Logger, admins AdminChecker, members MembershipFinder, grants RoleGrants) *Resolver {
	return &Resolver{logger: logger, admins: admins, members: members, grants: grants}
}

// Authorize reports whether userID may perform the permission identified by
// key inside tenantID. Platform admins bypass tenant scoping entirely; this
// is the only short-circuit. Everyone else needs an active membership whose
// role reaches the permission.
func (r *Resolver) Authorize(ctx context.Context, userID string, tenantID uuid.UUID, key permissions.Key) (bool, error) {
	admin, err := r.admins.IsPlatformAdmin(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%w: platform admin lookup: %v", httpx.ErrStorageUnavailable, err)
	}
	if admin {
		return true, nil
	}

	member, err := r.members.Get(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: membership lookup: %v", httpx.ErrStorageUnavailable, err)
	}
	if member.Status != memberships.StatusActive {
		return false, nil
	}

	keys, err := r.grants.EffectivePermissions(ctx, member.RoleID)
	if err != nil {
		return false, fmt.Errorf("%w: permission resolution: %v", httpx.ErrStorageUnavailable, err)
	}
	for _, k := range keys {
		if k == key {
			return true, nil
		}
	}
	return false, nil
}

// UserPermissions returns the caller's full permission set within a tenant.
// Platform admins get the unrestricted marker with an empty list; users
// without an active membership get ErrForbidden.
func (r *Resolver) UserPermissions(ctx context.Context, userID string, tenantID uuid.UUID) (Grants, error) {
	admin, err := r.admins.IsPlatformAdmin(ctx, userID)
	if err != nil {
		return Grants{}, fmt.Errorf("%w: platform admin lookup: %v", httpx.ErrStorageUnavailable, err)
	}
	if admin {
		return Grants{Unrestricted: true, Permissions: []permissions.Key{}}, nil
	}

	member, err := r.members.Get(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return Grants{}, fmt.Errorf("%w: no membership in this tenant", httpx.ErrForbidden)
		}
		return Grants{}, fmt.Errorf("%w: membership lookup: %v", httpx.ErrStorageUnavailable, err)
	}
	if member.Status != memberships.StatusActive {
		return Grants{}, fmt.Errorf("%w: membership is %s", httpx.ErrForbidden, member.Status)
	}

	keys, err := r.grants.EffectivePermissions(ctx, member.RoleID)
	if err != nil {
		return Grants{}, fmt.Errorf("%w: permission resolution: %v", httpx.ErrStorageUnavailable, err)
	}
	if keys == nil {
		keys = []permissions.Key{}
	}
	return Grants{Permissions: keys}, nil
}
