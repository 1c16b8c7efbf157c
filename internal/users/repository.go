package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cogivn/iwas/internal/access"
	"github.com/cogivn/iwas/internal/platform/db"
	"github.com/cogivn/iwas/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context, filter *access.Filter) ([]User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u User) (*User, error)
	Update(ctx context.Context, u User) (*User, error)
	Delete(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int64, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, name, password_hash, legacy_role, is_active, assigned_locations, can_download_scripts, created_at, updated_at`

// List returns accounts narrowed by the access filter. A nil filter returns
// every account.
func (r *Repository) List(ctx context.Context, filter *access.Filter) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	switch {
	case filter == nil:
	case filter.Column == "id" && filter.Equals != "":
		query += ` WHERE id = $1`
		args = append(args, filter.Equals)
	case filter.Column == "tenant_id" || filter.Column == "memberships.tenant_id":
		query += ` WHERE id IN (SELECT user_id FROM user_tenants WHERE tenant_id = ANY($1))`
		args = append(args, filter.In)
	default:
		return nil, fmt.Errorf("unsupported user filter column %q", filter.Column)
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		memberships, err := r.loadMemberships(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Memberships = memberships
	}
	return out, nil
}

// FindByID fetches one account with its memberships.
func (r *Repository) FindByID(ctx context.Context, id string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return r.hydrate(ctx, row)
}

// FindByEmail fetches one account by email with its memberships.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return r.hydrate(ctx, row)
}

// Create inserts the account and its membership rows in one transaction.
func (r *Repository) Create(ctx context.Context, u User) (*User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, name, password_hash, legacy_role, is_active, assigned_locations, can_download_scripts, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`,
			u.ID, u.Email, u.Name, u.PasswordHash, u.LegacyRole, u.IsActive, u.AssignedLocations, u.CanDownloadScripts)
		if err != nil {
			return translateErr(err)
		}
		return insertMemberships(ctx, tx, u.ID, u.Memberships)
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, u.ID)
}

// Update rewrites the account and replaces its membership rows.
func (r *Repository) Update(ctx context.Context, u User) (*User, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE users
			SET email = $2, name = $3, password_hash = $4, legacy_role = $5, is_active = $6,
			    assigned_locations = $7, can_download_scripts = $8, updated_at = now()
			WHERE id = $1`,
			u.ID, u.Email, u.Name, u.PasswordHash, u.LegacyRole, u.IsActive, u.AssignedLocations, u.CanDownloadScripts)
		if err != nil {
			return translateErr(err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_tenants WHERE user_id = $1`, u.ID); err != nil {
			return err
		}
		return insertMemberships(ctx, tx, u.ID, u.Memberships)
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, u.ID)
}

// Delete removes the account. Membership rows cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountUsers returns the total number of accounts.
func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n)
	return n, err
}

func (r *Repository) hydrate(ctx context.Context, row pgx.Row) (*User, error) {
	u, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	memberships, err := r.loadMemberships(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Memberships = memberships
	return u, nil
}

func (r *Repository) loadMemberships(ctx context.Context, userID string) ([]access.Membership, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ut.tenant_id, ut.roles, t.name, t.slug, t.is_active
		FROM user_tenants ut
		JOIN tenants t ON t.id = ut.tenant_id
		WHERE ut.user_id = $1
		ORDER BY ut.position`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []access.Membership
	for rows.Next() {
		var (
			rec   access.TenantRecord
			roles []string
		)
		if err := rows.Scan(&rec.ID, &roles, &rec.Name, &rec.Slug, &rec.IsActive); err != nil {
			return nil, err
		}
		m := access.Membership{Tenant: access.TenantRef{ID: rec.ID, Record: &rec}}
		for _, role := range roles {
			m.Roles = append(m.Roles, access.Role(role))
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func insertMemberships(ctx context.Context, tx pgx.Tx, userID string, memberships []access.Membership) error {
	for i, m := range memberships {
		roles := make([]string, len(m.Roles))
		for j, role := range m.Roles {
			roles[j] = string(role)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO user_tenants (user_id, tenant_id, roles, position)
			VALUES ($1, $2, $3, $4)`,
			userID, m.Tenant.TenantID(), roles, i)
		if err != nil {
			return err
		}
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.LegacyRole, &u.IsActive,
		&u.AssignedLocations, &u.CanDownloadScripts, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}
