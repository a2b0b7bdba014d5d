package policies

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tessera-io/tessera/internal/permissions"
	"github.com/tessera-io/tessera/internal/platform/httpx"
)

// GrantInvalidator is notified whenever the policy/permission graph changes,
// so cached permission sets can be dropped.
type GrantInvalidator interface {
	GraphChanged(ctx context.Context)
}

// Service handles policy business logic.
type Service struct {
	repo        Repository
	invalidator GrantInvalidator
}

// NewService builds a Service instance. invalidator may be nil when no
// caching layer is configured.
func NewService(repo Repository, invalidator GrantInvalidator) *Service {
	return &Service{repo: repo, invalidator: invalidator}
}

// Create inserts a new policy. Policies without a tenant are system-scoped
// and shared across all tenants.
func (s *Service) Create(ctx context.Context, req CreatePolicyRequest) (Policy, error) {
	policy := Policy{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		TenantID:    req.TenantID,
		IsSystem:    req.TenantID == nil,
	}
	created, err := s.repo.Create(ctx, policy)
	if err != nil {
		return Policy{}, fmt.Errorf("create policy: %w", err)
	}
	return created, nil
}

// Get fetches a policy by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Policy, error) {
	return s.repo.Get(ctx, id)
}

// List returns tenant-visible policies (tenant-owned plus system), or system
// policies only when tenantID is nil.
func (s *Service) List(ctx context.Context, tenantID *uuid.UUID) ([]Policy, error) {
	return s.repo.List(ctx, tenantID)
}

// Update patches name and description.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdatePolicyRequest) (Policy, error) {
	policy, err := s.repo.Get(ctx, id)
	if err != nil {
		return Policy{}, err
	}
	if req.Name != nil {
		policy.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		policy.Description = strings.TrimSpace(*req.Description)
	}
	updated, err := s.repo.Update(ctx, policy)
	if err != nil {
		return Policy{}, fmt.Errorf("update policy: %w", err)
	}
	return updated, nil
}

// Delete removes a policy. Deletion is restricted while any role still
// references the policy.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	refs, err := s.repo.CountRoleReferences(ctx, id)
	if err != nil {
		return fmt.Errorf("count role references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("%w: cannot delete: referenced by %d roles", httpx.ErrReferenced, refs)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete policy: %w", err)
	}
	s.graphChanged(ctx)
	return nil
}

// AssignPermissions attaches a batch of permissions to a policy. The batch is
// atomic: every id must reference an existing permission or nothing is
// inserted. Permissions already attached are skipped.
func (s *Service) AssignPermissions(ctx context.Context, policyID uuid.UUID, req AssignPermissionsRequest) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.Get(ctx, policyID); err != nil {
			return fmt.Errorf("%w: policy %s", httpx.ErrNotFound, policyID)
		}
		existing, err := repo.ExistingPermissionIDs(ctx, req.PermissionIDs)
		if err != nil {
			return fmt.Errorf("verify permissions: %w", err)
		}
		for _, id := range req.PermissionIDs {
			if _, ok := existing[id]; !ok {
				return fmt.Errorf("%w: permission %s", httpx.ErrNotFound, id)
			}
		}
		return repo.InsertPermissions(ctx, policyID, req.PermissionIDs)
	})
	if err != nil {
		return err
	}
	s.graphChanged(ctx)
	return nil
}

// RevokePermission detaches a permission from a policy. Revoking an
// unassigned permission is a no-op, not an error.
func (s *Service) RevokePermission(ctx context.Context, policyID, permissionID uuid.UUID) error {
	if _, err := s.repo.Get(ctx, policyID); err != nil {
		return err
	}
	if err := s.repo.RemovePermission(ctx, policyID, permissionID); err != nil {
		return fmt.Errorf("revoke permission: %w", err)
	}
	s.graphChanged(ctx)
	return nil
}

// EffectivePermissions returns the de-duplicated set of permission keys
// directly assigned to the policy.
func (s *Service) EffectivePermissions(ctx context.Context, policyID uuid.UUID) ([]permissions.Key, error) {
	if _, err := s.repo.Get(ctx, policyID); err != nil {
		return nil, err
	}
	return s.repo.EffectivePermissions(ctx, policyID)
}

func (s *Service) graphChanged(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.GraphChanged(ctx)
	}
}
