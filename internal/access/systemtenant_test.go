package access_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogivn/iwas/internal/access"
)

func TestSystemTenantCacheLifecycle(t *testing.T) {
	cache := access.NewSystemTenantCache("")
	_, ok := cache.Get()
	assert.False(t, ok)

	cache.Set("sys-1")
	id, ok := cache.Get()
	require.True(t, ok)
	assert.Equal(t, "sys-1", id)

	cache.Set("")
	id, _ = cache.Get()
	assert.Equal(t, "sys-1", id, "empty writes are ignored")

	cache.Reset()
	_, ok = cache.Get()
	assert.False(t, ok)
}

func TestResolverEnvSeedSkipsStore(t *testing.T) {
	store := newFakeTenantStore()
	resolver := access.NewResolver(access.NewSystemTenantCache("sys-env"), store)

	id, err := resolver.SystemTenantID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sys-env", id)
	assert.Zero(t, store.findBySlugCalls, "configured cell must resolve without I/O")
}

func TestResolverLookupBySlug(t *testing.T) {
	store := newFakeTenantStore()
	store.add("sys-1", access.SystemTenantSlug, true)
	resolver := access.NewResolver(access.NewSystemTenantCache(""), store)

	id, err := resolver.SystemTenantID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sys-1", id)
}

func TestResolverAbsentTenantIsNotAnError(t *testing.T) {
	resolver := access.NewResolver(access.NewSystemTenantCache(""), newFakeTenantStore())

	id, err := resolver.SystemTenantID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", id)
}

func TestResolverRequestCacheMemoizes(t *testing.T) {
	store := newFakeTenantStore()
	store.add("sys-1", access.SystemTenantSlug, true)
	resolver := access.NewResolver(access.NewSystemTenantCache(""), store)

	ctx := access.WithRequestCache(context.Background())
	for i := 0; i < 5; i++ {
		id, err := resolver.SystemTenantID(ctx)
		require.NoError(t, err)
		assert.Equal(t, "sys-1", id)
	}
	assert.Equal(t, 1, store.findBySlugCalls, "one lookup per request")
}

func TestResolverRequestCacheMemoizesAbsent(t *testing.T) {
	store := newFakeTenantStore()
	resolver := access.NewResolver(access.NewSystemTenantCache(""), store)

	ctx := access.WithRequestCache(context.Background())
	for i := 0; i < 3; i++ {
		id, err := resolver.SystemTenantID(ctx)
		require.NoError(t, err)
		assert.Equal(t, "", id)
	}
	assert.Equal(t, 1, store.findBySlugCalls, "absent result must be memoized too")
}

func TestResolverWithoutRequestCacheLooksUpEachTime(t *testing.T) {
	store := newFakeTenantStore()
	store.add("sys-1", access.SystemTenantSlug, true)
	resolver := access.NewResolver(access.NewSystemTenantCache(""), store)

	ctx := context.Background()
	_, _ = resolver.SystemTenantID(ctx)
	_, _ = resolver.SystemTenantID(ctx)
	assert.Equal(t, 2, store.findBySlugCalls)
}

func TestEnsureSystemTenantIdempotent(t *testing.T) {
	store := newFakeTenantStore()
	cache := access.NewSystemTenantCache("")
	resolver := access.NewResolver(cache, store)
	ctx := context.Background()

	first, err := resolver.EnsureSystemTenant(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := resolver.EnsureSystemTenant(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.createCalls, "exactly one tenant record created")

	// The id is published into the process-wide cell.
	cached, ok := cache.Get()
	require.True(t, ok)
	assert.Equal(t, first, cached)
}

func TestEnsureSystemTenantLosingRaceRefetches(t *testing.T) {
	store := newFakeTenantStore()
	store.conflictOnCreate = true
	resolver := access.NewResolver(access.NewSystemTenantCache(""), store)

	id, err := resolver.EnsureSystemTenant(context.Background())
	require.NoError(t, err, "a uniqueness conflict means already exists, not failure")
	assert.NotEmpty(t, id)

	winner, err := store.FindTenantBySlug(context.Background(), access.SystemTenantSlug)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, id)
}

func TestEnsureSystemTenantRefreshesRequestCache(t *testing.T) {
	store := newFakeTenantStore()
	resolver := access.NewResolver(access.NewSystemTenantCache(""), store)

	ctx := access.WithRequestCache(context.Background())
	id, err := resolver.SystemTenantID(ctx)
	require.NoError(t, err)
	require.Equal(t, "", id)

	created, err := resolver.EnsureSystemTenant(ctx)
	require.NoError(t, err)

	// The request memo must observe the freshly created tenant.
	resolved, err := resolver.SystemTenantID(ctx)
	require.NoError(t, err)
	assert.Equal(t, created, resolved)
}

func TestEnsureDefaultTenantIdempotent(t *testing.T) {
	store := newFakeTenantStore()
	resolver := access.NewResolver(access.NewSystemTenantCache(""), store)
	ctx := context.Background()

	first, err := resolver.EnsureDefaultTenant(ctx)
	require.NoError(t, err)
	second, err := resolver.EnsureDefaultTenant(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.createCalls)
}

func TestEnsureDefaultTenantDoesNotTouchCell(t *testing.T) {
	store := newFakeTenantStore()
	cache := access.NewSystemTenantCache("")
	resolver := access.NewResolver(cache, store)

	_, err := resolver.EnsureDefaultTenant(context.Background())
	require.NoError(t, err)
	_, ok := cache.Get()
	assert.False(t, ok, "only the System Tenant id is cached process-wide")
}
