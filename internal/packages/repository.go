package packages

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cogivn/iwas/internal/shared"
)

// RepositoryPort defines data access methods for packages.
type RepositoryPort interface {
	List(ctx context.Context, tenantIDs []string) ([]Package, error)
	FindByID(ctx context.Context, id string) (*Package, error)
	Create(ctx context.Context, p Package) (*Package, error)
	Update(ctx context.Context, p Package) (*Package, error)
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

const packageColumns = `id, tenant_id, name, description, duration_minutes, download_kbps, upload_kbps, price_cents, currency, is_active, created_at, updated_at`

// List returns packages, restricted to tenantIDs unless nil.
func (r *Repository) List(ctx context.Context, tenantIDs []string) ([]Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages`
	var args []any
	if tenantIDs != nil {
		query += ` WHERE tenant_id = ANY($1)`
		args = append(args, tenantIDs)
	}
	query += ` ORDER BY price_cents, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// FindByID fetches a package by id.
func (r *Repository) FindByID(ctx context.Context, id string) (*Package, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+packageColumns+` FROM packages WHERE id = $1`, id)
	return scanPackage(row)
}

// Create inserts a package.
func (r *Repository) Create(ctx context.Context, p Package) (*Package, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO packages (id, tenant_id, name, description, duration_minutes, download_kbps, upload_kbps, price_cents, currency, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())`,
		p.ID, p.TenantID, p.Name, p.Description, p.DurationMinutes, p.DownloadKbps, p.UploadKbps, p.PriceCents, p.Currency, p.IsActive)
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, p.ID)
}

// Update rewrites a package's mutable fields. The owning tenant is fixed.
func (r *Repository) Update(ctx context.Context, p Package) (*Package, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE packages
		SET name = $2, description = $3, duration_minutes = $4, download_kbps = $5,
		    upload_kbps = $6, price_cents = $7, currency = $8, is_active = $9, updated_at = now()
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.DurationMinutes, p.DownloadKbps, p.UploadKbps, p.PriceCents, p.Currency, p.IsActive)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrNotFound
	}
	return r.FindByID(ctx, p.ID)
}

// Delete removes a package.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM packages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanPackage(row pgx.Row) (*Package, error) {
	var p Package
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.DurationMinutes, &p.DownloadKbps,
		&p.UploadKbps, &p.PriceCents, &p.Currency, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
