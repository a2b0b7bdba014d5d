package permissions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tessera-io/tessera/internal/platform/httpx"
)

// Repository provides persistence for the permission catalog.
type Repository interface {
	Create(ctx context.Context, p Permission) (Permission, error)
	Get(ctx context.Context, id uuid.UUID) (Permission, error)
	GetByKey(ctx context.Context, key Key) (Permission, error)
	List(ctx context.Context, service string) ([]Permission, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountPolicyReferences(ctx context.Context, id uuid.UUID) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const permissionColumns = `id, service, entity, action, description, created_at, updated_at`

func (r *repository) Create(ctx context.Context, p Permission) (Permission, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (service, entity, action, description)
		VALUES ($1, $2, $3, $4)
		RETURNING `+permissionColumns,
		p.Service, p.Entity, p.Action, p.Description)
	return scanPermission(row)
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Permission, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, id)
	p, err := scanPermission(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Permission{}, httpx.ErrNotFound
	}
	return p, err
}

func (r *repository) GetByKey(ctx context.Context, key Key) (Permission, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+permissionColumns+`
		FROM permissions
		WHERE service = $1 AND entity = $2 AND action = $3`,
		key.Service, key.Entity, key.Action)
	p, err := scanPermission(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Permission{}, httpx.ErrNotFound
	}
	return p, err
}

func (r *repository) List(ctx context.Context, service string) ([]Permission, error) {
	query := `SELECT ` + permissionColumns + ` FROM permissions ORDER BY service, entity, action`
	args := []any{}
	if service != "" {
		query = `SELECT ` + permissionColumns + ` FROM permissions WHERE service = $1 ORDER BY entity, action`
		args = append(args, service)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	perms := make([]Permission, 0)
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) CountPolicyReferences(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM policy_permissions WHERE permission_id = $1`, id).Scan(&count)
	return count, err
}

func scanPermission(row pgx.Row) (Permission, error) {
	var p Permission
	err := row.Scan(&p.ID, &p.Service, &p.Entity, &p.Action, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
