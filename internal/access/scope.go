package access

import "context"

// Scope is the set of tenants a query may touch. All and an empty TenantIDs
// list are distinct states: All short-circuits to an unrestricted query and
// is never expanded into an explicit id list, while an empty list means the
// user reaches no tenant at all.
type Scope struct {
	All       bool
	TenantIDs []string
}

// Filter is a storage-layer predicate produced by an access decision.
// Repositories translate it into a WHERE fragment.
type Filter struct {
	// Column names the filtered column relative to the collection being
	// queried, e.g. "tenant_id" or "id".
	Column string
	// In restricts the column to a set of values. Ignored when Equals is set.
	In []string
	// Equals restricts the column to a single value.
	Equals string
}

// Decision is the outcome of an access predicate: denied, allowed without
// restriction, or allowed behind a filter.
type Decision struct {
	Allowed bool
	Filter  *Filter
}

// Deny returns a denial. Denials are expected outcomes, never errors.
func Deny() Decision { return Decision{} }

// Grant returns an unrestricted allow.
func Grant() Decision { return Decision{Allowed: true} }

// GrantWhere returns an allow restricted by f.
func GrantWhere(f Filter) Decision { return Decision{Allowed: true, Filter: &f} }

// TenantIn filters rows whose tenant column is in ids.
func TenantIn(ids []string) Filter { return Filter{Column: "tenant_id", In: ids} }

// SelfOnly filters identity rows to the user's own record.
func SelfOnly(userID string) Filter { return Filter{Column: "id", Equals: userID} }

// MemberTenantIn filters identity rows to users holding a membership in one
// of the given tenants. The column is resolved by the users repository
// through its membership join.
func MemberTenantIn(ids []string) Filter {
	return Filter{Column: "memberships.tenant_id", In: ids}
}

// TenantIDsForUser computes the query scope for user: unrestricted for
// holders of system:manage, otherwise the tenant ids of all memberships with
// empty references filtered out. A nil user gets an empty scope, not All.
func TenantIDsForUser(user *User, pctx PermissionContext) Scope {
	if user == nil {
		return Scope{TenantIDs: []string{}}
	}
	if HasPermission(user, PermSystemManage, pctx) {
		return Scope{All: true}
	}
	return Scope{TenantIDs: TenantIDs(user)}
}

// Evaluator binds the pure permission checks to the System Tenant resolver so
// handlers get one-call access decisions. Every method resolves the context
// through the request-scoped cache, so repeated checks within a request issue
// at most one tenant lookup.
type Evaluator struct {
	resolver *Resolver
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(resolver *Resolver) *Evaluator {
	return &Evaluator{resolver: resolver}
}

// Resolver exposes the underlying resolver for callers that need the raw
// System Tenant id.
func (e *Evaluator) Resolver() *Resolver { return e.resolver }

// RequirePermission is the boolean gate: true iff user holds perm.
func (e *Evaluator) RequirePermission(ctx context.Context, user *User, perm Permission) (bool, error) {
	pctx, err := e.resolver.Context(ctx)
	if err != nil {
		return false, err
	}
	return HasPermission(user, perm, pctx), nil
}

// RequirePermissionWithTenantScope gates reads/updates/deletes of
// tenant-scoped collections: denied without the permission, unrestricted for
// an All scope, denied for an empty scope, otherwise a tenant set-membership
// filter.
func (e *Evaluator) RequirePermissionWithTenantScope(ctx context.Context, user *User, perm Permission) (Decision, error) {
	pctx, err := e.resolver.Context(ctx)
	if err != nil {
		return Deny(), err
	}
	if !HasPermission(user, perm, pctx) {
		return Deny(), nil
	}
	scope := TenantIDsForUser(user, pctx)
	if scope.All {
		return Grant(), nil
	}
	if len(scope.TenantIDs) == 0 {
		return Deny(), nil
	}
	return GrantWhere(TenantIn(scope.TenantIDs)), nil
}

// UsersReadAccess scopes reads of identity records. Holders of users:read see
// the users of their tenants (or everything for an All scope); with an empty
// scope they fall back to their own record. Holders of only users:read-self
// see their own record. Everyone else is denied.
func (e *Evaluator) UsersReadAccess(ctx context.Context, user *User) (Decision, error) {
	pctx, err := e.resolver.Context(ctx)
	if err != nil {
		return Deny(), err
	}
	if user == nil {
		return Deny(), nil
	}
	if HasPermission(user, PermUsersRead, pctx) {
		scope := TenantIDsForUser(user, pctx)
		if scope.All {
			return Grant(), nil
		}
		if len(scope.TenantIDs) > 0 {
			return GrantWhere(MemberTenantIn(scope.TenantIDs)), nil
		}
		return GrantWhere(SelfOnly(user.ID)), nil
	}
	if HasPermission(user, PermUsersReadSelf, pctx) {
		return GrantWhere(SelfOnly(user.ID)), nil
	}
	return Deny(), nil
}

// UsersMutateAccess scopes updates/deletes of identity records. Like
// UsersReadAccess but without the self fallback: an empty tenant scope is an
// outright denial.
func (e *Evaluator) UsersMutateAccess(ctx context.Context, user *User, perm Permission) (Decision, error) {
	pctx, err := e.resolver.Context(ctx)
	if err != nil {
		return Deny(), err
	}
	if !HasPermission(user, perm, pctx) {
		return Deny(), nil
	}
	scope := TenantIDsForUser(user, pctx)
	if scope.All {
		return Grant(), nil
	}
	if len(scope.TenantIDs) > 0 {
		return GrantWhere(MemberTenantIn(scope.TenantIDs)), nil
	}
	return Deny(), nil
}
