package locations_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogivn/iwas/internal/access"
	"github.com/cogivn/iwas/internal/locations"
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
	byID map[string]locations.Location
}

func (m *memoryRepo) seed(tenantID, name string) locations.Location {
	l := locations.Location{ID: uuid.NewString(), TenantID: tenantID, Name: name, IsActive: true}
	m.byID[l.ID] = l
	return l
}

func (m *memoryRepo) List(ctx context.Context, q locations.Query) ([]locations.Location, error) {
	var out []locations.Location
	for _, l := range m.byID {
		if q.TenantIDs != nil && !containsStr(q.TenantIDs, l.TenantID) {
			continue
		}
		if q.IDs != nil && !containsStr(q.IDs, l.ID) {
			continue
		}
		out = append(out, l)
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

func (m *memoryRepo) FindByID(ctx context.Context, id string) (*locations.Location, error) {
	l, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &l, nil
}

func (m *memoryRepo) Create(ctx context.Context, l locations.Location) (*locations.Location, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = time.Now()
	l.UpdatedAt = l.CreatedAt
	m.byID[l.ID] = l
	return &l, nil
}

func (m *memoryRepo) Update(ctx context.Context, l locations.Location) (*locations.Location, error) {
	existing, ok := m.byID[l.ID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	l.TenantID = existing.TenantID
	l.UpdatedAt = time.Now()
	m.byID[l.ID] = l
	return &l, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type fixture struct {
	service *locations.Service
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
	repo := &memoryRepo{byID: map[string]locations.Location{}}
	return &fixture{
		service: locations.NewService(repo, access.NewEvaluator(resolver), nil),
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
	inScope := f.repo.seed(f.tenantA.ID, "Lobby")
	f.repo.seed(f.tenantB.ID, "Rooftop")
	admin := actorWith(f.tenantA, access.RoleOrgAdmin)

	listed, err := f.service.List(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, inScope.ID, listed[0].ID)
}

func TestListSystemAdminUnrestricted(t *testing.T) {
	f := newFixture(t)
	f.repo.seed(f.tenantA.ID, "Lobby")
	f.repo.seed(f.tenantB.ID, "Rooftop")
	root := actorWith(f.system, access.RoleSystemAdmin)

	listed, err := f.service.List(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestListLocationManagerNarrowedToAssigned(t *testing.T) {
	f := newFixture(t)
	assigned := f.repo.seed(f.tenantA.ID, "Lobby")
	f.repo.seed(f.tenantA.ID, "Terrace")
	manager := actorWith(f.tenantA, access.RoleLocManager)
	manager.AssignedLocations = []string{assigned.ID}

	listed, err := f.service.List(context.Background(), manager)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, assigned.ID, listed[0].ID)
}

func TestListLocationManagerWithoutAssignmentsForbidden(t *testing.T) {
	f := newFixture(t)
	f.repo.seed(f.tenantA.ID, "Lobby")
	manager := actorWith(f.tenantA, access.RoleLocManager)

	_, err := f.service.List(context.Background(), manager)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestGetLocationManagerWithoutAssignmentsForbidden(t *testing.T) {
	f := newFixture(t)
	l := f.repo.seed(f.tenantA.ID, "Lobby")
	manager := actorWith(f.tenantA, access.RoleLocManager)

	_, err := f.service.Get(context.Background(), manager, l.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestListCustomerDenied(t *testing.T) {
	f := newFixture(t)
	customer := actorWith(f.tenantA, access.RoleCustomer)

	_, err := f.service.List(context.Background(), customer)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestGetOutsideTenantReportsNotFound(t *testing.T) {
	f := newFixture(t)
	outside := f.repo.seed(f.tenantB.ID, "Rooftop")
	admin := actorWith(f.tenantA, access.RoleOrgAdmin)

	_, err := f.service.Get(context.Background(), admin, outside.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetUnassignedLocationHiddenFromManager(t *testing.T) {
	f := newFixture(t)
	assigned := f.repo.seed(f.tenantA.ID, "Lobby")
	other := f.repo.seed(f.tenantA.ID, "Terrace")
	manager := actorWith(f.tenantA, access.RoleLocManager)
	manager.AssignedLocations = []string{assigned.ID}

	_, err := f.service.Get(context.Background(), manager, other.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	got, err := f.service.Get(context.Background(), manager, assigned.ID)
	require.NoError(t, err)
	assert.Equal(t, assigned.ID, got.ID)
}

func TestCreateOutsideScopeForbidden(t *testing.T) {
	f := newFixture(t)
	admin := actorWith(f.tenantA, access.RoleOrgAdmin)

	_, err := f.service.Create(context.Background(), admin, locations.Location{
		TenantID: f.tenantB.ID,
		Name:     "Rooftop",
		IsActive: true,
	})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestCreateWithinScope(t *testing.T) {
	f := newFixture(t)
	admin := actorWith(f.tenantA, access.RoleOrgAdmin)

	created, err := f.service.Create(context.Background(), admin, locations.Location{
		TenantID: f.tenantA.ID,
		Name:     "  Lobby  ",
		IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Lobby", created.Name)
	assert.Equal(t, f.tenantA.ID, created.TenantID)
}

func TestUpdateCannotMoveTenants(t *testing.T) {
	f := newFixture(t)
	l := f.repo.seed(f.tenantA.ID, "Lobby")
	admin := actorWith(f.tenantA, access.RoleOrgAdmin)

	updated, err := f.service.Update(context.Background(), admin, locations.Location{
		ID:       l.ID,
		TenantID: f.tenantB.ID,
		Name:     "Lobby Renamed",
		IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, f.tenantA.ID, updated.TenantID)
	assert.Equal(t, "Lobby Renamed", updated.Name)
}

func TestDeleteRequiresPermission(t *testing.T) {
	f := newFixture(t)
	l := f.repo.seed(f.tenantA.ID, "Lobby")
	manager := actorWith(f.tenantA, access.RoleLocManager)
	manager.AssignedLocations = []string{l.ID}

	assert.ErrorIs(t, f.service.Delete(context.Background(), manager, l.ID), shared.ErrForbidden)

	admin := actorWith(f.tenantA, access.RoleOrgAdmin)
	require.NoError(t, f.service.Delete(context.Background(), admin, l.ID))
}

func TestProvisioningScriptNeedsDownloadFlag(t *testing.T) {
	f := newFixture(t)
	l := f.repo.seed(f.tenantA.ID, "Lobby")
	manager := actorWith(f.tenantA, access.RoleLocManager)
	manager.AssignedLocations = []string{l.ID}

	_, err := f.service.ProvisioningScript(context.Background(), manager, l.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	manager.CanDownloadScripts = true
	script, err := f.service.ProvisioningScript(context.Background(), manager, l.ID)
	require.NoError(t, err)
	assert.Contains(t, string(script), l.ID)
	assert.Contains(t, string(script), f.tenantA.ID)
}

func TestProvisioningScriptSystemAdminSkipsFlag(t *testing.T) {
	f := newFixture(t)
	l := f.repo.seed(f.tenantA.ID, "Lobby")
	root := actorWith(f.system, access.RoleSystemAdmin)

	script, err := f.service.ProvisioningScript(context.Background(), root, l.ID)
	require.NoError(t, err)
	assert.Contains(t, string(script), l.ID)
}
