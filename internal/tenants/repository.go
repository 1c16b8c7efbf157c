package tenants

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cogivn/iwas/internal/shared"
)

// RepositoryPort defines data access methods for tenants.
type RepositoryPort interface {
	List(ctx context.Context) ([]Tenant, error)
	FindByID(ctx context.Context, id string) (*Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*Tenant, error)
	Create(ctx context.Context, t Tenant) (*Tenant, error)
	Update(ctx context.Context, t Tenant) (*Tenant, error)
	Delete(ctx context.Context, id string) error
	CountUsers(ctx context.Context, tenantID string) (int64, error)
	CountLocations(ctx context.Context, tenantID string) (int64, error)
	CountPackages(ctx context.Context, tenantID string) (int64, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const tenantColumns = `id, name, slug, domain, is_active, created_at, updated_at`

func scanTenant(row pgx.Row) (*Tenant, error) {
	var t Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Domain, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// List returns all tenants ordered by name.
func (r *Repository) List(ctx context.Context) ([]Tenant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Domain, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// FindByID fetches a tenant by id.
func (r *Repository) FindByID(ctx context.Context, id string) (*Tenant, error) {
	return scanTenant(r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
}

// FindBySlug fetches a tenant by slug. The `LIMIT 1` mirrors the existence
// check idiom: at most one row can match because slug is unique.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*Tenant, error) {
	return scanTenant(r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = $1 LIMIT 1`, slug))
}

// Create inserts a tenant. A slug collision surfaces as shared.ErrDuplicate
// so callers can treat "already exists" as a benign race outcome.
func (r *Repository) Create(ctx context.Context, t Tenant) (*Tenant, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO tenants (id, name, slug, domain, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 RETURNING `+tenantColumns,
		t.ID, t.Name, t.Slug, t.Domain, t.IsActive, now)
	created, err := scanTenant(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrDuplicate
		}
		return nil, err
	}
	return created, nil
}

// Update rewrites the mutable tenant fields.
func (r *Repository) Update(ctx context.Context, t Tenant) (*Tenant, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE tenants SET name = $2, slug = $3, domain = $4, is_active = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+tenantColumns,
		t.ID, t.Name, t.Slug, t.Domain, t.IsActive)
	updated, err := scanTenant(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrDuplicate
		}
		return nil, err
	}
	return updated, nil
}

// Delete removes a tenant by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountUsers counts identities holding a membership in the tenant.
func (r *Repository) CountUsers(ctx context.Context, tenantID string) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT user_id) FROM user_tenants WHERE tenant_id = $1`, tenantID).Scan(&n)
	return n, err
}

// CountLocations counts the tenant's locations.
func (r *Repository) CountLocations(ctx context.Context, tenantID string) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM locations WHERE tenant_id = $1`, tenantID).Scan(&n)
	return n, err
}

// CountPackages counts the tenant's access packages.
func (r *Repository) CountPackages(ctx context.Context, tenantID string) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM packages WHERE tenant_id = $1`, tenantID).Scan(&n)
	return n, err
}

var _ RepositoryPort = (*Repository)(nil)
