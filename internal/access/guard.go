package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/cogivn/iwas/internal/shared"
)

// ValidationError is a user-correctable rejection of a membership write. It
// names the violated rule and leaves the prior state unchanged.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// IdentityStore is the slice of the users collection the guard needs to
// detect the first-ever identity.
type IdentityStore interface {
	CountUsers(ctx context.Context) (int64, error)
}

// Guard enforces the membership write rules: the hierarchy clamp, the
// first-user bootstrap and the system-admin exclusivity invariant. It runs
// whenever a user record's tenant/role assignments are written.
type Guard struct {
	resolver *Resolver
	tenants  TenantStore
	users    IdentityStore
}

// NewGuard constructs a Guard.
func NewGuard(resolver *Resolver, tenants TenantStore, users IdentityStore) *Guard {
	return &Guard{resolver: resolver, tenants: tenants, users: users}
}

// Apply validates and rewrites the incoming membership rows for a write
// performed by actor. isCreate marks a brand-new identity. The returned slice
// is what may be persisted; a *ValidationError return rejects the write.
//
// The clamp is idempotent: applying it to its own output changes nothing.
func (g *Guard) Apply(ctx context.Context, actor *User, incoming []Membership, isCreate bool) ([]Membership, error) {
	pctx, err := g.resolver.Context(ctx)
	if err != nil {
		return nil, err
	}

	result, err := g.clamp(ctx, actor, incoming, pctx)
	if err != nil {
		return nil, err
	}

	if isCreate && len(incoming) == 0 {
		result, err = g.bootstrap(ctx)
		if err != nil {
			return nil, err
		}
		// Bootstrap may have just created the System Tenant.
		pctx, err = g.resolver.Context(ctx)
		if err != nil {
			return nil, err
		}
	}

	if err := checkExclusivity(result, pctx); err != nil {
		return nil, err
	}
	return result, nil
}

// clamp drops every role the actor may not assign, prunes rows whose role set
// becomes empty, drops System Tenant rows unless the actor holds
// system:manage, and rejects rows referencing a disabled or unknown tenant.
func (g *Guard) clamp(ctx context.Context, actor *User, incoming []Membership, pctx PermissionContext) ([]Membership, error) {
	if len(incoming) == 0 {
		return nil, nil
	}
	assignable := make(map[Role]struct{})
	for _, r := range AssignableRoles(actor, pctx) {
		assignable[r] = struct{}{}
	}
	actorManagesSystem := HasPermission(actor, PermSystemManage, pctx)

	result := make([]Membership, 0, len(incoming))
	for _, row := range incoming {
		tid := row.Tenant.TenantID()
		if tid == "" {
			continue
		}
		if pctx.SystemTenantID != "" && tid == pctx.SystemTenantID && !actorManagesSystem {
			continue
		}
		kept := make([]Role, 0, len(row.Roles))
		for _, r := range row.Roles {
			if _, ok := assignable[r]; ok {
				kept = append(kept, r)
			}
		}
		if len(kept) == 0 {
			continue
		}
		if err := g.checkTenantActive(ctx, tid); err != nil {
			return nil, err
		}
		result = append(result, Membership{Tenant: TenantRef{ID: tid}, Roles: kept})
	}
	return result, nil
}

func (g *Guard) checkTenantActive(ctx context.Context, tenantID string) error {
	rec, err := g.tenants.FindTenantByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &ValidationError{Field: "tenants", Message: fmt.Sprintf("tenant %s does not exist", tenantID)}
		}
		return err
	}
	if !rec.IsActive {
		return &ValidationError{Field: "tenants", Message: fmt.Sprintf("tenant %s is disabled", tenantID)}
	}
	return nil
}

// bootstrap assigns the default membership for an identity created without
// any: the very first identity becomes system-admin of the System Tenant, all
// later ones land in the Default Tenant as customer.
func (g *Guard) bootstrap(ctx context.Context) ([]Membership, error) {
	count, err := g.users.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		id, err := g.resolver.EnsureSystemTenant(ctx)
		if err != nil {
			return nil, err
		}
		return []Membership{{Tenant: TenantRef{ID: id}, Roles: []Role{RoleSystemAdmin}}}, nil
	}
	id, err := g.resolver.EnsureDefaultTenant(ctx)
	if err != nil {
		return nil, err
	}
	return []Membership{{Tenant: TenantRef{ID: id}, Roles: []Role{RoleCustomer}}}, nil
}

// checkExclusivity rejects membership sets where a system-admin entry
// coexists with any other membership. System-admin status must be the user's
// only membership.
func checkExclusivity(memberships []Membership, pctx PermissionContext) error {
	if len(memberships) <= 1 {
		return nil
	}
	for _, m := range memberships {
		if containsRole(m.Roles, RoleSystemAdmin) ||
			(pctx.SystemTenantID != "" && m.Tenant.TenantID() == pctx.SystemTenantID) {
			return &ValidationError{
				Field:   "tenants",
				Message: "a system-admin assignment must be the user's only tenant membership",
			}
		}
	}
	return nil
}
