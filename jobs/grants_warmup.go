package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tessera-io/tessera/internal/authz"
)

// GrantsWarmupJob pre-populates the permission-set cache for every role so
// the first authorization check after an invalidation does not pay the
// resolution cost.
type GrantsWarmupJob struct {
	Grants authz.RoleGrants
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

// NewGrantsWarmupJob wires dependencies for the warmup handler.
func NewGrantsWarmupJob(grants authz.RoleGrants, pool *pgxpool.Pool, logger *slog.Logger) *GrantsWarmupJob {
	return &GrantsWarmupJob{Grants: grants, Pool: pool, Logger: logger}
}

// Handle processes TaskGrantsWarmup tasks.
func (j *GrantsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Grants == nil || j.Pool == nil {
		return errors.New("grants warmup: handler not configured")
	}

	started := time.Now()
	roleIDs, err := j.roleIDs(ctx)
	if err != nil {
		j.Logger.Error("load roles for warmup", slog.Any("error", err))
		return err
	}

	warmed := 0
	for _, id := range roleIDs {
		roleCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_, err := j.Grants.EffectivePermissions(roleCtx, id)
		cancel()
		if err != nil {
			j.Logger.Error("warm role grants", slog.String("role_id", id.String()), slog.Any("error", err))
			return err
		}
		warmed++
	}

	j.Logger.Info("grants warmup completed",
		slog.Int("roles", warmed),
		slog.Duration("duration", time.Since(started)))
	return nil
}

func (j *GrantsWarmupJob) roleIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := j.Pool.Query(ctx, `SELECT id FROM roles ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
