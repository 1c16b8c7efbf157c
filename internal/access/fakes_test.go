package access_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/cogivn/iwas/internal/access"
	"github.com/cogivn/iwas/internal/shared"
)

// fakeTenantStore is an in-memory access.TenantStore with call counters and
// optional injected duplicate conflicts to exercise the bootstrap race.
type fakeTenantStore struct {
	mu     sync.Mutex
	bySlug map[string]*access.TenantRecord
	nextID int

	findBySlugCalls int
	createCalls     int

	// conflictOnCreate makes the next CreateTenant report a uniqueness
	// violation after silently inserting the row, as if a concurrent writer
	// won the race.
	conflictOnCreate bool
}

func newFakeTenantStore() *fakeTenantStore {
	return &fakeTenantStore{bySlug: make(map[string]*access.TenantRecord)}
}

func (s *fakeTenantStore) add(id, slug string, active bool) *access.TenantRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &access.TenantRecord{ID: id, Name: slug, Slug: slug, IsActive: active}
	s.bySlug[slug] = rec
	return rec
}

func (s *fakeTenantStore) FindTenantBySlug(ctx context.Context, slug string) (*access.TenantRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findBySlugCalls++
	rec, ok := s.bySlug[slug]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return rec, nil
}

func (s *fakeTenantStore) FindTenantByID(ctx context.Context, id string) (*access.TenantRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.bySlug {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *fakeTenantStore) CreateTenant(ctx context.Context, name, slug string) (*access.TenantRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.conflictOnCreate {
		s.conflictOnCreate = false
		if _, ok := s.bySlug[slug]; !ok {
			s.nextID++
			s.bySlug[slug] = &access.TenantRecord{
				ID:       fmt.Sprintf("race-%d", s.nextID),
				Name:     name,
				Slug:     slug,
				IsActive: true,
			}
		}
		return nil, shared.ErrDuplicate
	}
	if _, ok := s.bySlug[slug]; ok {
		return nil, shared.ErrDuplicate
	}
	s.nextID++
	rec := &access.TenantRecord{
		ID:       fmt.Sprintf("ten-%d", s.nextID),
		Name:     name,
		Slug:     slug,
		IsActive: true,
	}
	s.bySlug[slug] = rec
	return rec, nil
}

// fakeIdentityStore is an in-memory access.IdentityStore.
type fakeIdentityStore struct {
	count int64
}

func (s *fakeIdentityStore) CountUsers(ctx context.Context) (int64, error) {
	return s.count, nil
}
