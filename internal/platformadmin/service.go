package platformadmin

import (
	"context"
	"fmt"
	"strings"

	"github.com/tessera-io/tessera/internal/platform/db"
	"github.com/tessera-io/tessera/internal/platform/httpx"
)

// Service owns the platform admin registry. The very first admin is inserted
// out-of-band (cmd/bootstrap); the HTTP surface only lets existing admins
// manage the set.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// IsPlatformAdmin reports whether the user is a platform admin. A single
// lookup with no tenant context.
func (s *Service) IsPlatformAdmin(ctx context.Context, userID string) (bool, error) {
	return s.repo.Exists(ctx, userID)
}

// Create registers a new platform admin.
func (s *Service) Create(ctx context.Context, req CreateAdminRequest, createdBy string) (Admin, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return Admin{}, fmt.Errorf("%w: user id must not be empty", httpx.ErrValidation)
	}

	exists, err := s.repo.Exists(ctx, userID)
	if err != nil {
		return Admin{}, fmt.Errorf("check existing admin: %w", err)
	}
	if exists {
		return Admin{}, fmt.Errorf("%w: user is already a platform admin", httpx.ErrConflict)
	}

	admin, err := s.repo.Create(ctx, userID, createdBy)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Admin{}, fmt.Errorf("%w: user is already a platform admin", httpx.ErrConflict)
		}
		return Admin{}, fmt.Errorf("create admin: %w", err)
	}
	return admin, nil
}

// Get fetches an admin record by user id.
func (s *Service) Get(ctx context.Context, userID string) (Admin, error) {
	return s.repo.Get(ctx, userID)
}

// List returns all platform admins.
func (s *Service) List(ctx context.Context) ([]Admin, error) {
	return s.repo.List(ctx)
}

// Delete removes a platform admin. The registry must never be emptied
// through self-service deletion: removing the last admin is rejected.
func (s *Service) Delete(ctx context.Context, userID string) error {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		return err
	}
	count, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if count <= 1 {
		return fmt.Errorf("%w: cannot remove the last platform admin", httpx.ErrConflict)
	}
	return s.repo.Delete(ctx, userID)
}
