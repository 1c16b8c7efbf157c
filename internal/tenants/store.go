package tenants

import (
	"context"

	"github.com/cogivn/iwas/internal/access"
)

// AccessStore adapts the tenant repository to the access layer's view. Its
// CreateTenant runs directly against the repository, bypassing the access
// predicates: it is only reached from bootstrap paths that execute before a
// privileged user exists.
type AccessStore struct {
	repo RepositoryPort
}

// NewAccessStore builds the adapter.
func NewAccessStore(repo RepositoryPort) *AccessStore {
	return &AccessStore{repo: repo}
}

func (s *AccessStore) FindTenantBySlug(ctx context.Context, slug string) (*access.TenantRecord, error) {
	t, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return toRecord(t), nil
}

func (s *AccessStore) FindTenantByID(ctx context.Context, id string) (*access.TenantRecord, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toRecord(t), nil
}

func (s *AccessStore) CreateTenant(ctx context.Context, name, slug string) (*access.TenantRecord, error) {
	t, err := s.repo.Create(ctx, Tenant{Name: name, Slug: slug, IsActive: true})
	if err != nil {
		return nil, err
	}
	return toRecord(t), nil
}

func toRecord(t *Tenant) *access.TenantRecord {
	return &access.TenantRecord{ID: t.ID, Name: t.Name, Slug: t.Slug, IsActive: t.IsActive}
}

var _ access.TenantStore = (*AccessStore)(nil)
