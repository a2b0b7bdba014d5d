package memberships

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tessera-io/tessera/internal/platform/db"
	"github.com/tessera-io/tessera/internal/platform/httpx"
	"github.com/tessera-io/tessera/internal/roles"
	"github.com/tessera-io/tessera/internal/shared"
)

// RoleDirectory is the slice of the role store the membership service needs
// to validate assignments.
type RoleDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (roles.Role, error)
}

// Service handles tenant membership lifecycle.
type Service struct {
	repo  Repository
	roles RoleDirectory
}

// NewService builds a Service instance.
func NewService(repo Repository, roleDir RoleDirectory) *Service {
	return &Service{repo: repo, roles: roleDir}
}

// Add binds a user to a tenant with a single role. The role must exist, be a
// tenant role, and be either system-scoped or owned by the tenant.
func (s *Service) Add(ctx context.Context, tenantID uuid.UUID, req AddMemberRequest, invitedBy string) (Membership, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return Membership{}, fmt.Errorf("%w: user id must not be empty", httpx.ErrValidation)
	}

	existing, err := s.repo.Get(ctx, tenantID, userID)
	if err != nil && !errors.Is(err, httpx.ErrNotFound) {
		return Membership{}, fmt.Errorf("check existing membership: %w", err)
	}
	if err == nil && existing.ID != uuid.Nil {
		return Membership{}, fmt.Errorf("%w: user is already a member of this tenant", httpx.ErrConflict)
	}

	if err := s.validateRole(ctx, tenantID, req.RoleID); err != nil {
		return Membership{}, err
	}

	member := Membership{
		TenantID: tenantID,
		UserID:   userID,
		RoleID:   req.RoleID,
		Status:   StatusActive,
	}
	if invitedBy != "" {
		member.InvitedBy = &invitedBy
	}

	created, err := s.repo.Create(ctx, member)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Membership{}, fmt.Errorf("%w: user is already a member of this tenant", httpx.ErrConflict)
		}
		return Membership{}, fmt.Errorf("add member: %w", err)
	}
	return created, nil
}

// Get fetches a membership by tenant and user.
func (s *Service) Get(ctx context.Context, tenantID uuid.UUID, userID string) (Membership, error) {
	return s.repo.Get(ctx, tenantID, userID)
}

// List returns the tenant's members with pagination metadata.
func (s *Service) List(ctx context.Context, req ListMembersRequest) ([]Membership, shared.Pagination, error) {
	page := shared.NewPagination(req.Limit, req.Offset, 0)
	members, total, err := s.repo.ListByTenant(ctx, req.TenantID, page.Limit, page.Offset)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list members: %w", err)
	}
	return members, shared.NewPagination(page.Limit, page.Offset, total), nil
}

// Update changes a member's role and/or status.
func (s *Service) Update(ctx context.Context, tenantID uuid.UUID, userID string, req UpdateMemberRequest) (Membership, error) {
	member, err := s.repo.Get(ctx, tenantID, userID)
	if err != nil {
		return Membership{}, err
	}

	if req.RoleID != nil {
		if err := s.validateRole(ctx, tenantID, *req.RoleID); err != nil {
			return Membership{}, err
		}
		member.RoleID = *req.RoleID
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return Membership{}, fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, *req.Status)
		}
		member.Status = *req.Status
	}

	updated, err := s.repo.Update(ctx, member)
	if err != nil {
		return Membership{}, fmt.Errorf("update member: %w", err)
	}
	return updated, nil
}

// Remove deletes the membership row.
func (s *Service) Remove(ctx context.Context, tenantID uuid.UUID, userID string) error {
	return s.repo.Delete(ctx, tenantID, userID)
}

func (s *Service) validateRole(ctx context.Context, tenantID, roleID uuid.UUID) error {
	role, err := s.roles.Get(ctx, roleID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return fmt.Errorf("%w: role %s", httpx.ErrNotFound, roleID)
		}
		return fmt.Errorf("verify role: %w", err)
	}
	if role.Type != roles.RoleTypeTenant {
		return fmt.Errorf("%w: role %q is not assignable to tenant members", httpx.ErrValidation, role.Name)
	}
	if role.TenantID != nil && *role.TenantID != tenantID {
		return fmt.Errorf("%w: role does not belong to this tenant", httpx.ErrValidation)
	}
	return nil
}
