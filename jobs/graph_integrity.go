package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GraphIntegrityJob scans the authorization graph for rows the schema cannot
// reject on its own: memberships holding platform-type roles, memberships
// holding another tenant's role, and unknown membership statuses. Findings
// are logged, never auto-repaired.
type GraphIntegrityJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

// NewGraphIntegrityJob wires dependencies for the integrity handler.
func NewGraphIntegrityJob(pool *pgxpool.Pool, logger *slog.Logger) *GraphIntegrityJob {
	return &GraphIntegrityJob{Pool: pool, Logger: logger}
}

// Handle processes TaskGraphIntegrity tasks.
func (j *GraphIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("graph integrity: handler not configured")
	}

	checks := []struct {
		name  string
		query string
	}{
		{
			name: "memberships_with_platform_roles",
			query: `SELECT COUNT(*)
				FROM tenant_members tm
				JOIN roles r ON r.id = tm.role_id
				WHERE r.type <> 'tenant'`,
		},
		{
			name: "memberships_with_foreign_tenant_roles",
			query: `SELECT COUNT(*)
				FROM tenant_members tm
				JOIN roles r ON r.id = tm.role_id
				WHERE r.tenant_id IS NOT NULL AND r.tenant_id <> tm.tenant_id`,
		},
		{
			name: "memberships_with_unknown_status",
			query: `SELECT COUNT(*)
				FROM tenant_members
				WHERE status NOT IN ('pending', 'active', 'inactive')`,
		},
	}

	clean := true
	for _, check := range checks {
		var count int
		if err := j.Pool.QueryRow(ctx, check.query).Scan(&count); err != nil {
			j.Logger.Error("integrity check failed", slog.String("check", check.name), slog.Any("error", err))
			return err
		}
		if count > 0 {
			clean = false
			j.Logger.Warn("integrity violation detected",
				slog.String("check", check.name),
				slog.Int("rows", count))
		}
	}

	if clean {
		j.Logger.Info("graph integrity scan clean")
	}
	return nil
}
