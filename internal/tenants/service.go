package tenants

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cogivn/iwas/internal/access"
	"github.com/cogivn/iwas/internal/shared"
)

// Auditor records tenant mutations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles tenant business logic.
type Service struct {
	repo  RepositoryPort
	audit Auditor
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit Auditor) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns all tenants.
func (s *Service) List(ctx context.Context) ([]Tenant, error) {
	return s.repo.List(ctx)
}

// Get fetches a tenant by id.
func (s *Service) Get(ctx context.Context, id string) (*Tenant, error) {
	return s.repo.FindByID(ctx, id)
}

// Create inserts a tenant, deriving the slug from the name when absent.
func (s *Service) Create(ctx context.Context, actorID string, t Tenant) (*Tenant, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Slug == "" {
		t.Slug = shared.Slugify(t.Name)
	} else {
		t.Slug = shared.Slugify(t.Slug)
	}
	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "tenant.create", created.ID, map[string]any{"slug": created.Slug})
	return created, nil
}

// Update rewrites a tenant's mutable fields. The reserved slugs cannot be
// renamed away: losing the "system" slug would strand every system-admin.
func (s *Service) Update(ctx context.Context, actorID string, t Tenant) (*Tenant, error) {
	existing, err := s.repo.FindByID(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Name = strings.TrimSpace(t.Name)
	if t.Slug == "" {
		t.Slug = existing.Slug
	} else {
		t.Slug = shared.Slugify(t.Slug)
	}
	if isReservedSlug(existing.Slug) && t.Slug != existing.Slug {
		return nil, &access.ValidationError{Field: "slug", Message: "reserved tenant slugs cannot be changed"}
	}
	updated, err := s.repo.Update(ctx, t)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "tenant.update", updated.ID, map[string]any{"slug": updated.Slug})
	return updated, nil
}

// Delete removes a tenant. Reserved tenants cannot be deleted.
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if isReservedSlug(existing.Slug) {
		return &access.ValidationError{Field: "slug", Message: "reserved tenants cannot be deleted"}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "tenant.delete", id, map[string]any{"slug": existing.Slug})
	return nil
}

// Overview fans out the per-tenant counters in parallel.
func (s *Service) Overview(ctx context.Context, id string) (*Overview, error) {
	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ov := Overview{Tenant: *tenant}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ov.Users, err = s.repo.CountUsers(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		ov.Locations, err = s.repo.CountLocations(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		ov.Packages, err = s.repo.CountPackages(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ov, nil
}

func (s *Service) record(ctx context.Context, actorID, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "tenants",
		EntityID: entityID,
		Meta:     meta,
	})
}

func isReservedSlug(slug string) bool {
	return slug == access.SystemTenantSlug || slug == access.DefaultTenantSlug
}
