package packages

import (
	"context"
	"strings"

	"github.com/cogivn/iwas/internal/access"
	"github.com/cogivn/iwas/internal/shared"
)

// Auditor records package mutations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles package business logic behind the evaluator's tenant scope.
type Service struct {
	repo      RepositoryPort
	evaluator *access.Evaluator
	audit     Auditor
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, evaluator *access.Evaluator, audit Auditor) *Service {
	return &Service{repo: repo, evaluator: evaluator, audit: audit}
}

// List returns the packages of the actor's tenants.
func (s *Service) List(ctx context.Context, actor *access.User) ([]Package, error) {
	decision, err := s.evaluator.RequirePermissionWithTenantScope(ctx, actor, access.PermPackagesRead)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, shared.ErrForbidden
	}
	var tenantIDs []string
	if decision.Filter != nil {
		tenantIDs = decision.Filter.In
	}
	return s.repo.List(ctx, tenantIDs)
}

// Get fetches one package if the actor's scope covers it.
func (s *Service) Get(ctx context.Context, actor *access.User, id string) (*Package, error) {
	decision, err := s.evaluator.RequirePermissionWithTenantScope(ctx, actor, access.PermPackagesRead)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, shared.ErrForbidden
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tenantInScope(decision, p.TenantID) {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

// Create inserts a package under a tenant within the actor's scope.
func (s *Service) Create(ctx context.Context, actor *access.User, p Package) (*Package, error) {
	decision, err := s.evaluator.RequirePermissionWithTenantScope(ctx, actor, access.PermPackagesCreate)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed || !tenantInScope(decision, p.TenantID) {
		return nil, shared.ErrForbidden
	}
	p.Name = strings.TrimSpace(p.Name)
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, "package.create", created.ID)
	return created, nil
}

// Update rewrites a package within the actor's scope.
func (s *Service) Update(ctx context.Context, actor *access.User, p Package) (*Package, error) {
	decision, err := s.evaluator.RequirePermissionWithTenantScope(ctx, actor, access.PermPackagesUpdate)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, shared.ErrForbidden
	}
	existing, err := s.repo.FindByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if !tenantInScope(decision, existing.TenantID) {
		return nil, shared.ErrNotFound
	}
	p.TenantID = existing.TenantID
	p.Name = strings.TrimSpace(p.Name)
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, "package.update", p.ID)
	return updated, nil
}

// Delete removes a package within the actor's scope.
func (s *Service) Delete(ctx context.Context, actor *access.User, id string) error {
	decision, err := s.evaluator.RequirePermissionWithTenantScope(ctx, actor, access.PermPackagesDelete)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return shared.ErrForbidden
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !tenantInScope(decision, existing.TenantID) {
		return shared.ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "package.delete", id)
	return nil
}

func tenantInScope(d access.Decision, tenantID string) bool {
	if d.Filter == nil {
		return true
	}
	for _, candidate := range d.Filter.In {
		if candidate == tenantID {
			return true
		}
	}
	return false
}

func (s *Service) record(ctx context.Context, actor *access.User, action, entityID string) {
	if s.audit == nil {
		return
	}
	actorID := ""
	if actor != nil {
		actorID = actor.ID
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "packages",
		EntityID: entityID,
	})
}
