package access

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cogivn/iwas/internal/shared"
)

const (
	// SystemTenantSlug identifies the reserved platform tenant. Only users
	// assigned to it with the system-admin role have platform-wide access.
	SystemTenantSlug = "system"
	// DefaultTenantSlug identifies the landing tenant for self-registered
	// users with no explicit tenant.
	DefaultTenantSlug = "default"

	systemTenantName  = "Platform"
	defaultTenantName = "Default Tenant"
)

// PermissionContext carries the resolved System Tenant id for the duration of
// one evaluation. An empty SystemTenantID means "not resolved / not
// configured": no system-admin authority is honored in that state.
type PermissionContext struct {
	SystemTenantID string
}

// TenantStore is the slice of the tenant collection the access layer needs.
// CreateTenant runs with elevated privilege: it bypasses the access
// predicates because it executes during bootstrap, before any privileged
// user exists. It returns shared.ErrDuplicate when the slug already exists.
type TenantStore interface {
	FindTenantBySlug(ctx context.Context, slug string) (*TenantRecord, error)
	FindTenantByID(ctx context.Context, id string) (*TenantRecord, error)
	CreateTenant(ctx context.Context, name, slug string) (*TenantRecord, error)
}

// SystemTenantCache is the process-wide System Tenant id cell. It is seeded
// from SYSTEM_TENANT_ID at startup, written once by bootstrap, and read
// synchronously thereafter. Reset exists so tests can clear it between cases.
type SystemTenantCache struct {
	id atomic.Pointer[string]
}

// NewSystemTenantCache builds a cache, optionally pre-seeded from
// configuration. An empty seed leaves the cell absent.
func NewSystemTenantCache(seed string) *SystemTenantCache {
	c := &SystemTenantCache{}
	if seed != "" {
		c.id.Store(&seed)
	}
	return c
}

// Get returns the cached id, if set.
func (c *SystemTenantCache) Get() (string, bool) {
	if p := c.id.Load(); p != nil {
		return *p, true
	}
	return "", false
}

// Set publishes the System Tenant id. Called by bootstrap after the tenant is
// created or first resolved.
func (c *SystemTenantCache) Set(id string) {
	if id == "" {
		return
	}
	c.id.Store(&id)
}

// Reset clears the cell.
func (c *SystemTenantCache) Reset() {
	c.id.Store(nil)
}

type requestCacheKey struct{}

// requestCache memoizes one resolution per request, absent results included.
// Sessions are handled request-at-a-time, so no lock is needed beyond the
// write-once discipline.
type requestCache struct {
	resolved bool
	id       string
}

// WithRequestCache attaches a request-scoped System Tenant memo to ctx.
// Install it once per inbound request so repeated permission checks issue at
// most one tenant lookup.
func WithRequestCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestCacheKey{}, &requestCache{})
}

// Resolver resolves the System Tenant id through three tiers, cheapest first:
// the process-wide cell, the request-scoped memo, then a slug lookup against
// the tenant store.
type Resolver struct {
	cache *SystemTenantCache
	store TenantStore
}

// NewResolver constructs a Resolver.
func NewResolver(cache *SystemTenantCache, store TenantStore) *Resolver {
	return &Resolver{cache: cache, store: store}
}

// SystemTenantID resolves the System Tenant id. An empty id with a nil error
// means the tenant does not exist yet; callers treat that as "no one has
// platform-wide authority", not as a fault.
func (r *Resolver) SystemTenantID(ctx context.Context) (string, error) {
	if id, ok := r.cache.Get(); ok {
		return id, nil
	}
	rc, _ := ctx.Value(requestCacheKey{}).(*requestCache)
	if rc != nil && rc.resolved {
		return rc.id, nil
	}
	id, err := r.lookup(ctx)
	if err != nil {
		return "", err
	}
	if rc != nil {
		rc.id = id
		rc.resolved = true
	}
	return id, nil
}

// Context resolves a PermissionContext for one evaluation.
func (r *Resolver) Context(ctx context.Context) (PermissionContext, error) {
	id, err := r.SystemTenantID(ctx)
	if err != nil {
		return PermissionContext{}, err
	}
	return PermissionContext{SystemTenantID: id}, nil
}

func (r *Resolver) lookup(ctx context.Context) (string, error) {
	rec, err := r.store.FindTenantBySlug(ctx, SystemTenantSlug)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("access: resolve system tenant: %w", err)
	}
	return rec.ID, nil
}

// EnsureSystemTenant finds or creates the System Tenant and publishes its id
// into the process-wide cell. Idempotent. Two concurrent bootstraps are
// serialized by the store's slug uniqueness constraint: the loser re-fetches
// instead of failing.
func (r *Resolver) EnsureSystemTenant(ctx context.Context) (string, error) {
	id, err := r.SystemTenantID(ctx)
	if err != nil {
		return "", err
	}
	if id != "" {
		r.cache.Set(id)
		return id, nil
	}
	id, err = r.findOrCreate(ctx, systemTenantName, SystemTenantSlug)
	if err != nil {
		return "", err
	}
	r.cache.Set(id)
	r.refreshRequestCache(ctx, id)
	return id, nil
}

// EnsureDefaultTenant finds or creates the Default Tenant. Idempotent.
func (r *Resolver) EnsureDefaultTenant(ctx context.Context) (string, error) {
	rec, err := r.store.FindTenantBySlug(ctx, DefaultTenantSlug)
	if err == nil {
		return rec.ID, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return "", fmt.Errorf("access: resolve default tenant: %w", err)
	}
	return r.findOrCreate(ctx, defaultTenantName, DefaultTenantSlug)
}

func (r *Resolver) findOrCreate(ctx context.Context, name, slug string) (string, error) {
	rec, err := r.store.CreateTenant(ctx, name, slug)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			// Lost the bootstrap race; the winner's row must exist now.
			existing, ferr := r.store.FindTenantBySlug(ctx, slug)
			if ferr != nil {
				return "", fmt.Errorf("access: re-fetch tenant %q after conflict: %w", slug, ferr)
			}
			return existing.ID, nil
		}
		return "", fmt.Errorf("access: create tenant %q: %w", slug, err)
	}
	return rec.ID, nil
}

func (r *Resolver) refreshRequestCache(ctx context.Context, id string) {
	if rc, ok := ctx.Value(requestCacheKey{}).(*requestCache); ok {
		rc.id = id
		rc.resolved = true
	}
}
