package platformadmin

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tessera-io/tessera/internal/platform/httpx"
)

// Repository provides persistence for the platform admin registry.
type Repository interface {
	Create(ctx context.Context, userID, createdBy string) (Admin, error)
	Get(ctx context.Context, userID string) (Admin, error)
	List(ctx context.Context) ([]Admin, error)
	Delete(ctx context.Context, userID string) error
	Exists(ctx context.Context, userID string) (bool, error)
	Count(ctx context.Context) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const adminColumns = `id, user_id, created_by, created_at`

func (r *repository) Create(ctx context.Context, userID, createdBy string) (Admin, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO platform_admins (user_id, created_by)
		VALUES ($1, $2)
		RETURNING `+adminColumns,
		userID, createdBy)
	return scanAdmin(row)
}

func (r *repository) Get(ctx context.Context, userID string) (Admin, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM platform_admins WHERE user_id = $1`, userID)
	admin, err := scanAdmin(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Admin{}, httpx.ErrNotFound
	}
	return admin, err
}

func (r *repository) List(ctx context.Context) ([]Admin, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+adminColumns+` FROM platform_admins ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	admins := make([]Admin, 0)
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, admin)
	}
	return admins, rows.Err()
}

func (r *repository) Delete(ctx context.Context, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM platform_admins WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Exists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM platform_admins WHERE user_id = $1)`, userID).Scan(&exists)
	return exists, err
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM platform_admins`).Scan(&count)
	return count, err
}

func scanAdmin(row pgx.Row) (Admin, error) {
	var a Admin
	err := row.Scan(&a.ID, &a.UserID, &a.CreatedBy, &a.CreatedAt)
	return a, err
}
