package locations

import (
	"context"
	"fmt"
	"strings"

	"github.com/cogivn/iwas/internal/access"
	"github.com/cogivn/iwas/internal/shared"
)

// Auditor records location mutations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles location business logic. All reads and writes pass through
// the permission evaluator's tenant scope.
type Service struct {
	repo      RepositoryPort
	evaluator *access.Evaluator
	audit     Auditor
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, evaluator *access.Evaluator, audit Auditor) *Service {
	return &Service{repo: repo, evaluator: evaluator, audit: audit}
}

// List returns the locations the actor may see. Plain location managers are
// narrowed further to their assigned locations.
func (s *Service) List(ctx context.Context, actor *access.User) ([]Location, error) {
	decision, err := s.evaluator.RequirePermissionWithTenantScope(ctx, actor, access.PermLocationsRead)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, shared.ErrForbidden
	}
	q := Query{}
	if decision.Filter != nil {
		q.TenantIDs = decision.Filter.In
	}
	narrowed := access.LocationManagerScope(actor)
	if !narrowed.Allowed {
		// A location manager with no assigned locations sees nothing.
		return nil, shared.ErrForbidden
	}
	if narrowed.Filter != nil && narrowed.Filter.Column == "id" {
		q.IDs = narrowed.Filter.In
	}
	return s.repo.List(ctx, q)
}

// Get fetches one location if the actor's scope covers it.
func (s *Service) Get(ctx context.Context, actor *access.User, id string) (*Location, error) {
	decision, err := s.evaluator.RequirePermissionWithTenantScope(ctx, actor, access.PermLocationsRead)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, shared.ErrForbidden
	}
	narrowed := access.LocationManagerScope(actor)
	if !narrowed.Allowed {
		return nil, shared.ErrForbidden
	}
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tenantInScope(decision, l.TenantID) {
		return nil, shared.ErrNotFound
	}
	if narrowed.Filter != nil && narrowed.Filter.Column == "id" && !contains(narrowed.Filter.In, id) {
		return nil, shared.ErrNotFound
	}
	return l, nil
}

// Create inserts a location under a tenant within the actor's scope.
func (s *Service) Create(ctx context.Context, actor *access.User, l Location) (*Location, error) {
	decision, err := s.evaluator.RequirePermissionWithTenantScope(ctx, actor, access.PermLocationsCreate)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed || !tenantInScope(decision, l.TenantID) {
		return nil, shared.ErrForbidden
	}
	l.Name = strings.TrimSpace(l.Name)
	created, err := s.repo.Create(ctx, l)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, "location.create", created.ID)
	return created, nil
}

// Update rewrites a location within the actor's scope.
func (s *Service) Update(ctx context.Context, actor *access.User, l Location) (*Location, error) {
	decision, err := s.evaluator.RequirePermissionWithTenantScope(ctx, actor, access.PermLocationsUpdate)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, shared.ErrForbidden
	}
	existing, err := s.repo.FindByID(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	if !tenantInScope(decision, existing.TenantID) {
		return nil, shared.ErrNotFound
	}
	l.TenantID = existing.TenantID
	l.Name = strings.TrimSpace(l.Name)
	updated, err := s.repo.Update(ctx, l)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, "location.update", l.ID)
	return updated, nil
}

// Delete removes a location within the actor's scope.
func (s *Service) Delete(ctx context.Context, actor *access.User, id string) error {
	decision, err := s.evaluator.RequirePermissionWithTenantScope(ctx, actor, access.PermLocationsDelete)
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
	s.record(ctx, actor, "location.delete", id)
	return nil
}

// ProvisioningScript renders the router onboarding script for a location.
// Besides the download permission, non-platform actors need the per-account
// download flag.
func (s *Service) ProvisioningScript(ctx context.Context, actor *access.User, id string) ([]byte, error) {
	allowed, err := s.evaluator.RequirePermission(ctx, actor, access.PermScriptsDownload)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, shared.ErrForbidden
	}
	platform, err := s.evaluator.RequirePermission(ctx, actor, access.PermSystemManage)
	if err != nil {
		return nil, err
	}
	if !platform && !actor.CanDownloadScripts {
		return nil, shared.ErrForbidden
	}
	l, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	script := fmt.Sprintf(`#!/bin/sh
# Router provisioning for %s
uci set wireless.portal.location_id='%s'
uci set wireless.portal.tenant_id='%s'
uci commit wireless
wifi reload
`, l.Name, l.ID, l.TenantID)
	return []byte(script), nil
}

func tenantInScope(d access.Decision, tenantID string) bool {
	if d.Filter == nil {
		return true
	}
	return contains(d.Filter.In, tenantID)
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
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
		Entity:   "locations",
		EntityID: entityID,
	})
}
