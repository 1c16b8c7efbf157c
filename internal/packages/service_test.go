package packages_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogivn/iwas/internal/access"
	"github.com/cogivn/iwas/internal/packages"
	"github.com/cogivn/iwas/internal/shared"
)

type memoryTenants struct {
	bySlug map[string]*access.TenantRecord
}

func (m *memoryTenants) add(name, slug string) *access.TenantRecord {
	rec := &access.TenantRecord{ID: uuid.NewString(), Name: name, Slug: slug, IsActive: true}
	m.bySlug[slug] = rec
	return rec
}

func (m *memoryTenants) FindTenantBySlug(ctx context.Context, slug string) (*access.TenantRecord, error) {
	if rec, ok := m.bySlug[slug]; ok {
		return rec, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memoryTenants) FindTenantByID(ctx context.Context, id string) (*access.TenantRecord, error) {
	for _, rec := range m.bySlug {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryTenants) CreateTenant(ctx context.Context, name, slug string) (*access.TenantRecord, error) {
	if _, ok := m.bySlug[slug]; ok {
		return nil, shared.ErrDuplicate
	}
	return m.add(name, slug), nil
}

type memoryRepo struct {
	byID map[string]packages.Package
}

func (m *memoryRepo) seed(tenantID, name string) packages.Package {
	p := packages.Package{ID: uuid.NewString(), TenantID: tenantID, Name: name, DurationMinutes: 60, IsActive: true}
	m.byID[p.ID] = p
	return p
}

func (m *memoryRepo) List(ctx context.Context, tenantIDs []string) ([]packages.Package, error) {
	var out []packages.Package
	for _, p := range m.byID {
		if tenantIDs != nil && !containsStr(tenantIDs, p.TenantID) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func containsStr(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func (m *memoryRepo) FindByID(ctx context.Context, id string) (*packages.Package, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (m *memoryRepo) Create(ctx context.Context, p packages.Package) (*packages.Package, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.byID[p.ID] = p
	return &p, nil
}

func (m *memoryRepo) Update(ctx context.Context, p packages.Package) (*packages.Package, error) {
	existing, ok := m.byID[p.ID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	p.TenantID = existing.TenantID
	p.UpdatedAt = time.Now()
	m.byID[p.ID] = p
	return &p, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type fixture struct {
	service *packages.Service
	repo    *memoryRepo
	system  *access.TenantRecord
	tenantA *access.TenantRecord
	tenantB *access.TenantRecord
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tenants := &memoryTenants{bySlug: map[string]*access.TenantRecord{}}
	system := tenants.add("Platform", access.SystemTenantSlug)
	tenantA := tenants.add("Harbour", "harbour")
	tenantB := tenants.add("Summit", "summit")

	resolver := access.NewResolver(access.NewSystemTenantCache(""), tenants)
	repo := &memoryRepo{byID: map[string]packages.Package{}}
	return &fixture{
		service: packages.NewService(repo, access.NewEvaluator(resolver), nil),
		repo:    repo,
		system:  system,
		tenantA: tenantA,
		tenantB: tenantB,
	}
}

func actorWith(rec *access.TenantRecord, roles ...access.Role) *access.User {
	return &access.User{
		ID: uuid.NewString(),
		Memberships: []access.Membership{
			{Tenant: access.TenantRef{ID: rec.ID, Record: rec}, Roles: roles},
		},
	}
}

func TestListScopedToActorTenant(t *testing.T) {
	f := newFixture(t)
	inScope := f.repo.seed(f.tenantA.ID, "Day Pass")
	f.repo.seed(f.tenantB.ID, "Week Pass")
	admin := actorWith(f.tenantA, access.RoleOrgAdmin)

	listed, err := f.service.List(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, inScope.ID, listed[0].ID)
}

func TestListSystemAdminUnrestricted(t *testing.T) {
	f := newFixture(t)
	f.repo.seed(f.tenantA.ID, "Day Pass")
	f.repo.seed(f.tenantB.ID, "Week Pass")
	root := actorWith(f.system, access.RoleSystemAdmin)

	listed, err := f.service.List(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestListCustomerDenied(t *testing.T) {
	f := newFixture(t)
	customer := actorWith(f.tenantA, access.RoleCustomer)

	_, err := f.service.List(context.Background(), customer)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestLocationManagerCanReadNotMutate(t *testing.T) {
	f := newFixture(t)
	p := f.repo.seed(f.tenantA.ID, "Day Pass")
	manager := actorWith(f.tenantA, access.RoleLocManager)

	listed, err := f.service.List(context.Background(), manager)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, err = f.service.Update(context.Background(), manager, packages.Package{ID: p.ID, Name: "Renamed", DurationMinutes: 60})
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.ErrorIs(t, f.service.Delete(context.Background(), manager, p.ID), shared.ErrForbidden)
}

func TestGetOutsideTenantReportsNotFound(t *testing.T) {
	f := newFixture(t)
	outside := f.repo.seed(f.tenantB.ID, "Week Pass")
	admin := actorWith(f.tenantA, access.RoleOrgAdmin)

	_, err := f.service.Get(context.Background(), admin, outside.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateOutsideScopeForbidden(t *testing.T) {
	f := newFixture(t)
	admin := actorWith(f.tenantA, access.RoleOrgAdmin)

	_, err := f.service.Create(context.Background(), admin, packages.Package{
		TenantID:        f.tenantB.ID,
		Name:            "Week Pass",
		DurationMinutes: 60 * 24 * 7,
	})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestUpdateCannotMoveTenants(t *testing.T) {
	f := newFixture(t)
	p := f.repo.seed(f.tenantA.ID, "Day Pass")
	admin := actorWith(f.tenantA, access.RoleOrgAdmin)

	updated, err := f.service.Update(context.Background(), admin, packages.Package{
		ID:              p.ID,
		TenantID:        f.tenantB.ID,
		Name:            "Day Pass Plus",
		DurationMinutes: 120,
	})
	require.NoError(t, err)
	assert.Equal(t, f.tenantA.ID, updated.TenantID)
	assert.Equal(t, "Day Pass Plus", updated.Name)
}

func TestDeleteWithinScope(t *testing.T) {
	f := newFixture(t)
	p := f.repo.seed(f.tenantA.ID, "Day Pass")
	admin := actorWith(f.tenantA, access.RoleOrgAdmin)

	require.NoError(t, f.service.Delete(context.Background(), admin, p.ID))
	_, err := f.repo.FindByID(context.Background(), p.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
