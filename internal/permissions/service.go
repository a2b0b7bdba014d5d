package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tessera-io/tessera/internal/platform/db"
	"github.com/tessera-io/tessera/internal/platform/httpx"
)

// Service owns the permission catalog: the atomic vocabulary of
// service:entity:action rights the rest of the engine composes.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new permission. The (service, entity, action) key must
// be globally unique and no component may be empty or contain the key
// separator.
func (s *Service) Create(ctx context.Context, req CreatePermissionRequest) (Permission, error) {
	perm := Permission{
		Service:     strings.TrimSpace(req.Service),
		Entity:      strings.TrimSpace(req.Entity),
		Action:      strings.TrimSpace(req.Action),
		Description: strings.TrimSpace(req.Description),
	}
	if err := validateKey(perm.Key()); err != nil {
		return Permission{}, err
	}

	existing, err := s.repo.GetByKey(ctx, perm.Key())
	if err != nil && !errors.Is(err, httpx.ErrNotFound) {
		return Permission{}, fmt.Errorf("check existing permission: %w", err)
	}
	if err == nil && existing.ID != uuid.Nil {
		return Permission{}, fmt.Errorf("%w: permission %s already exists", httpx.ErrConflict, perm.Key())
	}

	created, err := s.repo.Create(ctx, perm)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Permission{}, fmt.Errorf("%w: permission %s already exists", httpx.ErrConflict, perm.Key())
		}
		return Permission{}, fmt.Errorf("create permission: %w", err)
	}
	return created, nil
}

// Get fetches a permission by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Permission, error) {
	return s.repo.Get(ctx, id)
}

// List returns the catalog, optionally filtered by service.
func (s *Service) List(ctx context.Context, req ListPermissionsRequest) ([]Permission, error) {
	return s.repo.List(ctx, strings.TrimSpace(req.Service))
}

// Delete removes a permission. Deletion is restricted while any policy still
// references it; revoke the permission from those policies first.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	refs, err := s.repo.CountPolicyReferences(ctx, id)
	if err != nil {
		return fmt.Errorf("count policy references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("%w: cannot delete: referenced by %d policies", httpx.ErrReferenced, refs)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: cannot delete: permission is still referenced", httpx.ErrReferenced)
		}
		return fmt.Errorf("delete permission: %w", err)
	}
	return nil
}

func validateKey(key Key) error {
	for _, component := range []struct {
		name  string
		value string
	}{
		{"service", key.Service},
		{"entity", key.Entity},
		{"action", key.Action},
	} {
		if component.value == "" {
			return fmt.Errorf("%w: %s must not be empty", httpx.ErrValidation, component.name)
		}
		if strings.Contains(component.value, KeySeparator) {
			return fmt.Errorf("%w: %s must not contain %q", httpx.ErrValidation, component.name, KeySeparator)
		}
	}
	return nil
}
