package policies

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tessera-io/tessera/internal/permissions"
	"github.com/tessera-io/tessera/internal/platform/db"
	"github.com/tessera-io/tessera/internal/platform/httpx"
)

// Repository provides persistence for policies and their permission grants.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, p Policy) (Policy, error)
	Get(ctx context.Context, id uuid.UUID) (Policy, error)
	List(ctx context.Context, tenantID *uuid.UUID) ([]Policy, error)
	Update(ctx context.Context, p Policy) (Policy, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountRoleReferences(ctx context.Context, id uuid.UUID) (int, error)
	ExistingPermissionIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error)
	InsertPermissions(ctx context.Context, policyID uuid.UUID, ids []uuid.UUID) error
	RemovePermission(ctx context.Context, policyID, permissionID uuid.UUID) error
	EffectivePermissions(ctx context.Context, policyID uuid.UUID) ([]permissions.Key, error)
}

// pgx pool and pgx.Tx share the query surface the repository needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	q    querier
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{q: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{q: tx, pool: r.pool})
	})
}

const policyColumns = `id, name, description, tenant_id, is_system, created_at, updated_at`

func (r *repository) Create(ctx context.Context, p Policy) (Policy, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO policies (name, description, tenant_id, is_system)
		VALUES ($1, $2, $3, $4)
		RETURNING `+policyColumns,
		p.Name, p.Description, p.TenantID, p.IsSystem)
	return scanPolicy(row)
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Policy, error) {
	row := r.q.QueryRow(ctx, `SELECT `+policyColumns+` FROM policies WHERE id = $1`, id)
	p, err := scanPolicy(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Policy{}, httpx.ErrNotFound
	}
	return p, err
}

// List returns tenant-owned plus system policies for a tenant, or system
// policies only when no tenant filter is given.
func (r *repository) List(ctx context.Context, tenantID *uuid.UUID) ([]Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM policies WHERE is_system ORDER BY name`
	args := []any{}
	if tenantID != nil {
		query = `SELECT ` + policyColumns + ` FROM policies WHERE tenant_id = $1 OR tenant_id IS NULL ORDER BY name`
		args = append(args, *tenantID)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Policy, 0)
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) Update(ctx context.Context, p Policy) (Policy, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE policies
		SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+policyColumns,
		p.ID, p.Name, p.Description)
	updated, err := scanPolicy(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Policy{}, httpx.ErrNotFound
	}
	return updated, err
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM policies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) CountRoleReferences(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM role_policies WHERE policy_id = $1`, id).Scan(&count)
	return count, err
}

func (r *repository) ExistingPermissionIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	rows, err := r.q.Query(ctx, `SELECT id FROM permissions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[uuid.UUID]struct{}, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = struct{}{}
	}
	return found, rows.Err()
}

func (r *repository) InsertPermissions(ctx context.Context, policyID uuid.UUID, ids []uuid.UUID) error {
	for _, id := range ids {
		_, err := r.q.Exec(ctx, `
			INSERT INTO policy_permissions (policy_id, permission_id)
			VALUES ($1, $2)
			ON CONFLICT (policy_id, permission_id) DO NOTHING`,
			policyID, id)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) RemovePermission(ctx context.Context, policyID, permissionID uuid.UUID) error {
	_, err := r.q.Exec(ctx, `
		DELETE FROM policy_permissions
		WHERE policy_id = $1 AND permission_id = $2`,
		policyID, permissionID)
	return err
}

func (r *repository) EffectivePermissions(ctx context.Context, policyID uuid.UUID) ([]permissions.Key, error) {
	rows, err := r.q.Query(ctx, `
		SELECT DISTINCT p.service, p.entity, p.action
		FROM permissions p
		JOIN policy_permissions pp ON pp.permission_id = p.id
		WHERE pp.policy_id = $1
		ORDER BY p.service, p.entity, p.action`,
		policyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]permissions.Key, 0)
	for rows.Next() {
		var k permissions.Key
		if err := rows.Scan(&k.Service, &k.Entity, &k.Action); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func scanPolicy(row pgx.Row) (Policy, error) {
	var p Policy
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.TenantID, &p.IsSystem, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
