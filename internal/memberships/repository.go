package memberships

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tessera-io/tessera/internal/platform/httpx"
)

// Repository provides persistence for tenant memberships.
type Repository interface {
	Create(ctx context.Context, m Membership) (Membership, error)
	Get(ctx context.Context, tenantID uuid.UUID, userID string) (Membership, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Membership, int, error)
	Update(ctx context.Context, m Membership) (Membership, error)
	Delete(ctx context.Context, tenantID uuid.UUID, userID string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const memberColumns = `id, tenant_id, user_id, role_id, status, invited_by, joined_at, created_at, updated_at`

func (r *repository) Create(ctx context.Context, m Membership) (Membership, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tenant_members (tenant_id, user_id, role_id, status, invited_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+memberColumns,
		m.TenantID, m.UserID, m.RoleID, m.Status, m.InvitedBy)
	return scanMembership(row)
}

func (r *repository) Get(ctx context.Context, tenantID uuid.UUID, userID string) (Membership, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM tenant_members
		WHERE tenant_id = $1 AND user_id = $2`,
		tenantID, userID)
	m, err := scanMembership(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Membership{}, httpx.ErrNotFound
	}
	return m, err
}

func (r *repository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Membership, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tenant_members WHERE tenant_id = $1`, tenantID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+memberColumns+`
		FROM tenant_members
		WHERE tenant_id = $1
		ORDER BY joined_at
		LIMIT $2 OFFSET $3`,
		tenantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	members := make([]Membership, 0)
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, 0, err
		}
		members = append(members, m)
	}
	return members, total, rows.Err()
}

func (r *repository) Update(ctx context.Context, m Membership) (Membership, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tenant_members
		SET role_id = $3, status = $4, updated_at = NOW()
		WHERE tenant_id = $1 AND user_id = $2
		RETURNING `+memberColumns,
		m.TenantID, m.UserID, m.RoleID, m.Status)
	updated, err := scanMembership(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Membership{}, httpx.ErrNotFound
	}
	return updated, err
}

func (r *repository) Delete(ctx context.Context, tenantID uuid.UUID, userID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM tenant_members WHERE tenant_id = $1 AND user_id = $2`, tenantID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func scanMembership(row pgx.Row) (Membership, error) {
	var m Membership
	err := row.Scan(&m.ID, &m.TenantID, &m.UserID, &m.RoleID, &m.Status, &m.InvitedBy, &m.JoinedAt, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}
