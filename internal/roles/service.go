package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tessera-io/tessera/internal/permissions"
	"github.com/tessera-io/tessera/internal/platform/httpx"
	"github.com/tessera-io/tessera/internal/policies"
)

// GrantInvalidator is notified whenever the role/policy graph changes.
type GrantInvalidator interface {
	GraphChanged(ctx context.Context)
}

// Service handles role business logic.
type Service struct {
	repo        Repository
	invalidator GrantInvalidator
}

// NewService builds a Service instance. invalidator may be nil when no
// caching layer is configured.
func NewService(repo Repository, invalidator GrantInvalidator) *Service {
	return &Service{repo: repo, invalidator: invalidator}
}

// Create inserts a new role.
func (s *Service) Create(ctx context.Context, req CreateRoleRequest) (Role, error) {
	role := Role{
		Name:        strings.TrimSpace(req.Name),
		Type:        RoleType(req.Type),
		Description: strings.TrimSpace(req.Description),
		TenantID:    req.TenantID,
		IsSystem:    req.TenantID == nil,
	}
	created, err := s.repo.Create(ctx, role)
	if err != nil {
		return Role{}, fmt.Errorf("create role: %w", err)
	}
	return created, nil
}

// Get fetches a role by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Role, error) {
	return s.repo.Get(ctx, id)
}

// List returns tenant-visible roles (tenant-owned plus system), or system
// roles only when tenantID is nil.
func (s *Service) List(ctx context.Context, tenantID *uuid.UUID) ([]Role, error) {
	return s.repo.List(ctx, tenantID)
}

// Update patches name and description. Role type is immutable.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRoleRequest) (Role, error) {
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if req.Name != nil {
		role.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		role.Description = strings.TrimSpace(*req.Description)
	}
	updated, err := s.repo.Update(ctx, role)
	if err != nil {
		return Role{}, fmt.Errorf("update role: %w", err)
	}
	return updated, nil
}

// Delete removes a role. Deletion is restricted while any tenant membership
// still holds the role.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	refs, err := s.repo.CountMembershipReferences(ctx, id)
	if err != nil {
		return fmt.Errorf("count membership references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("%w: cannot delete: held by %d memberships", httpx.ErrReferenced, refs)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	s.graphChanged(ctx)
	return nil
}

// AssignPolicies attaches a batch of policies to a role. The batch is atomic:
// every id must reference an existing policy or nothing is inserted. Policies
// already attached are skipped.
func (s *Service) AssignPolicies(ctx context.Context, roleID uuid.UUID, req AssignPoliciesRequest) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.Get(ctx, roleID); err != nil {
			return fmt.Errorf("%w: role %s", httpx.ErrNotFound, roleID)
		}
		existing, err := repo.ExistingPolicyIDs(ctx, req.PolicyIDs)
		if err != nil {
			return fmt.Errorf("verify policies: %w", err)
		}
		for _, id := range req.PolicyIDs {
			if _, ok := existing[id]; !ok {
				return fmt.Errorf("%w: policy %s", httpx.ErrNotFound, id)
			}
		}
		return repo.InsertPolicies(ctx, roleID, req.PolicyIDs)
	})
	if err != nil {
		return err
	}
	s.graphChanged(ctx)
	return nil
}

// RevokePolicy detaches a policy from a role. Revoking an unassigned policy
// is a no-op, not an error.
func (s *Service) RevokePolicy(ctx context.Context, roleID, policyID uuid.UUID) error {
	if _, err := s.repo.Get(ctx, roleID); err != nil {
		return err
	}
	if err := s.repo.RemovePolicy(ctx, roleID, policyID); err != nil {
		return fmt.Errorf("revoke policy: %w", err)
	}
	s.graphChanged(ctx)
	return nil
}

// Policies lists the policies attached to a role.
func (s *Service) Policies(ctx context.Context, roleID uuid.UUID) ([]policies.Policy, error) {
	if _, err := s.repo.Get(ctx, roleID); err != nil {
		return nil, err
	}
	return s.repo.Policies(ctx, roleID)
}

// EffectivePermissions returns the de-duplicated transitive union of
// permission keys reachable through the role's policies.
func (s *Service) EffectivePermissions(ctx context.Context, roleID uuid.UUID) ([]permissions.Key, error) {
	if _, err := s.repo.Get(ctx, roleID); err != nil {
		return nil, err
	}
	return s.repo.EffectivePermissions(ctx, roleID)
}

func (s *Service) graphChanged(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.GraphChanged(ctx)
	}
}
