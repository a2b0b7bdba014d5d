package roles

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
	"github.com/tessera-io/tessera/internal/policies"
)

// Repository provides persistence for roles and their policy grants.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, role Role) (Role, error)
	Get(ctx context.Context, id uuid.UUID) (Role, error)
	List(ctx context.Context, tenantID *uuid.UUID) ([]Role, error)
	Update(ctx context.Context, role Role) (Role, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountMembershipReferences(ctx context.Context, id uuid.UUID) (int, error)
	ExistingPolicyIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error)
	InsertPolicies(ctx context.Context, roleID uuid.UUID, ids []uuid.UUID) error
	RemovePolicy(ctx context.Context, roleID, policyID uuid.UUID) error
	Policies(ctx context.Context, roleID uuid.UUID) ([]policies.Policy, error)
	EffectivePermissions(ctx context.Context, roleID uuid.UUID) ([]permissions.Key, error)
}

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

const roleColumns = `id, name, type, description, tenant_id, is_system, created_at, updated_at`

func (r *repository) Create(ctx context.Context, role Role) (Role, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO roles (name, type, description, tenant_id, is_system)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+roleColumns,
		role.Name, role.Type, role.Description, role.TenantID, role.IsSystem)
	return scanRole(row)
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Role, error) {
	row := r.q.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	role, err := scanRole(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, httpx.ErrNotFound
	}
	return role, err
}

// List returns tenant-owned plus system roles for a tenant, or system roles
// only when no tenant filter is given.
func (r *repository) List(ctx context.Context, tenantID *uuid.UUID) ([]Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE is_system ORDER BY name`
	args := []any{}
	if tenantID != nil {
		query = `SELECT ` + roleColumns + ` FROM roles WHERE tenant_id = $1 OR tenant_id IS NULL ORDER BY name`
		args = append(args, *tenantID)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Role, 0)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *repository) Update(ctx context.Context, role Role) (Role, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE roles
		SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+roleColumns,
		role.ID, role.Name, role.Description)
	updated, err := scanRole(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, httpx.ErrNotFound
	}
	return updated, err
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) CountMembershipReferences(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM tenant_members WHERE role_id = $1`, id).Scan(&count)
	return count, err
}

func (r *repository) ExistingPolicyIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	rows, err := r.q.Query(ctx, `SELECT id FROM policies WHERE id = ANY($1)`, ids)
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

func (r *repository) InsertPolicies(ctx context.Context, roleID uuid.UUID, ids []uuid.UUID) error {
	for _, id := range ids {
		_, err := r.q.Exec(ctx, `
			INSERT INTO role_policies (role_id, policy_id)
			VALUES ($1, $2)
			ON CONFLICT (role_id, policy_id) DO NOTHING`,
			roleID, id)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) RemovePolicy(ctx context.Context, roleID, policyID uuid.UUID) error {
	_, err := r.q.Exec(ctx, `
		DELETE FROM role_policies
		WHERE role_id = $1 AND policy_id = $2`,
		roleID, policyID)
	return err
}

func (r *repository) Policies(ctx context.Context, roleID uuid.UUID) ([]policies.Policy, error) {
	rows, err := r.q.Query(ctx, `
		SELECT p.id, p.name, p.description, p.tenant_id, p.is_system, p.created_at, p.updated_at
		FROM policies p
		JOIN role_policies rp ON rp.policy_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name`,
		roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]policies.Policy, 0)
	for rows.Next() {
		var p policies.Policy
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.TenantID, &p.IsSystem, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// EffectivePermissions resolves the transitive union of permissions reachable
// through every policy attached to the role. DISTINCT collapses permissions
// reachable through more than one policy.
func (r *repository) EffectivePermissions(ctx context.Context, roleID uuid.UUID) ([]permissions.Key, error) {
	rows, err := r.q.Query(ctx, `
		SELECT DISTINCT p.service, p.entity, p.action
		FROM permissions p
		JOIN policy_permissions pp ON pp.permission_id = p.id
		JOIN role_policies rp ON rp.policy_id = pp.policy_id
		WHERE rp.role_id = $1
		ORDER BY p.service, p.entity, p.action`,
		roleID)
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

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Type, &role.Description, &role.TenantID, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}
