package locations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cogivn/iwas/internal/shared"
)

// Query narrows a listing. Nil slices leave the dimension unrestricted.
type Query struct {
	TenantIDs []string
	IDs       []string
}

// RepositoryPort defines data access methods for locations.
type RepositoryPort interface {
	List(ctx context.Context, q Query) ([]Location, error)
	FindByID(ctx context.Context, id string) (*Location, error)
	Create(ctx context.Context, l Location) (*Location, error)
	Update(ctx context.Context, l Location) (*Location, error)
	Delete(ctx context.Context, id string) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const locationColumns = `id, tenant_id, name, address, timezone, is_active, created_at, updated_at`

// List returns locations matching the query.
func (r *Repository) List(ctx context.Context, q Query) ([]Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations`
	var args []any
	if q.TenantIDs != nil {
		args = append(args, q.TenantIDs)
		query += fmt.Sprintf(` WHERE tenant_id = ANY($%d)`, len(args))
	}
	if q.IDs != nil {
		args = append(args, q.IDs)
		clause := ` WHERE `
		if len(args) > 1 {
			clause = ` AND `
		}
		query += fmt.Sprintf(`%sid = ANY($%d)`, clause, len(args))
	}
	query += ` ORDER BY name, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.TenantID, &l.Name, &l.Address, &l.Timezone, &l.IsActive, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// FindByID fetches a location by id.
func (r *Repository) FindByID(ctx context.Context, id string) (*Location, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id)
	var l Location
	err := row.Scan(&l.ID, &l.TenantID, &l.Name, &l.Address, &l.Timezone, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a location.
func (r *Repository) Create(ctx context.Context, l Location) (*Location, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO locations (id, tenant_id, name, address, timezone, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())`,
		l.ID, l.TenantID, l.Name, l.Address, l.Timezone, l.IsActive)
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, l.ID)
}

// Update rewrites a location's mutable fields. The owning tenant is fixed.
func (r *Repository) Update(ctx context.Context, l Location) (*Location, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE locations
		SET name = $2, address = $3, timezone = $4, is_active = $5, updated_at = now()
		WHERE id = $1`,
		l.ID, l.Name, l.Address, l.Timezone, l.IsActive)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrNotFound
	}
	return r.FindByID(ctx, l.ID)
}

// Delete removes a location.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
