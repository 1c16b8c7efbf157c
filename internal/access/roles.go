package access

import "fmt"

// Role is one of the fixed, hierarchically ordered role slugs. The hierarchy
// index in RoleOrder drives assignment gating; it does not imply permission
// inheritance — each role's permission list is declared in full below.
type Role string

const (
	RoleSystemAdmin Role = "system-admin"
	RoleOrgAdmin    Role = "org-admin"
	RoleLocManager  Role = "loc-manager"
	RoleCustomer    Role = "customer"
)

var roleOrder = []Role{RoleSystemAdmin, RoleOrgAdmin, RoleLocManager, RoleCustomer}

var roleOrderIndex = func() map[Role]int {
	idx := make(map[Role]int, len(roleOrder))
	for i, r := range roleOrder {
		idx[r] = i
	}
	return idx
}()

// RoleOrder returns the role hierarchy, highest privilege first. Callers must
// not mutate the returned slice.
func RoleOrder() []Role {
	out := make([]Role, len(roleOrder))
	copy(out, roleOrder)
	return out
}

// RoleLabels maps role slugs to display labels for UI consumers.
var RoleLabels = map[Role]string{
	RoleSystemAdmin: "System Admin",
	RoleOrgAdmin:    "Organization Admin",
	RoleLocManager:  "Location Manager",
	RoleCustomer:    "Customer",
}

// RoleOption pairs a role slug with its display label, for select fields.
type RoleOption struct {
	Label string `json:"label"`
	Value Role   `json:"value"`
}

// RoleOptions returns all roles as labelled options in hierarchy order.
func RoleOptions() []RoleOption {
	opts := make([]RoleOption, 0, len(roleOrder))
	for _, r := range roleOrder {
		opts = append(opts, RoleOption{Label: RoleLabels[r], Value: r})
	}
	return opts
}

// tenantOperationalPermissions is everything a tenant-level admin can do.
// system-admin gets all of this plus the platform-management permissions.
var tenantOperationalPermissions = []Permission{
	PermAdminAccess,
	PermUsersRead,
	PermUsersCreate,
	PermUsersUpdate,
	PermUsersDelete,
	PermLocationsRead,
	PermLocationsCreate,
	PermLocationsUpdate,
	PermLocationsDelete,
	PermPackagesRead,
	PermPackagesCreate,
	PermPackagesUpdate,
	PermPackagesDelete,
	PermSessionsRead,
	PermSessionsUpdate,
	PermMediaRead,
	PermMediaCreate,
	PermMediaUpdate,
	PermMediaDelete,
	PermScriptsDownload,
}

// rolePermissions declares each role's permission list in full. Lists are
// independent: keep them in sync by hand, the registry tests assert the
// subset invariants.
var rolePermissions = map[Role][]Permission{
	RoleSystemAdmin: append([]Permission{
		PermSystemManage,
		PermTenantsRead,
		PermTenantsCreate,
		PermTenantsUpdate,
		PermTenantsDelete,
	}, tenantOperationalPermissions...),
	RoleOrgAdmin: {
		PermAdminAccess,
		PermUsersRead,
		PermUsersCreate,
		PermUsersUpdate,
		PermUsersDelete,
		PermLocationsRead,
		PermLocationsCreate,
		PermLocationsUpdate,
		PermLocationsDelete,
		PermPackagesRead,
		PermPackagesCreate,
		PermPackagesUpdate,
		PermPackagesDelete,
		PermSessionsRead,
		PermSessionsUpdate,
		PermMediaRead,
		PermMediaCreate,
		PermMediaUpdate,
		PermMediaDelete,
		PermScriptsDownload,
	},
	RoleLocManager: {
		PermAdminAccess,
		PermUsersRead,
		PermLocationsRead,
		PermLocationsUpdate,
		PermSessionsRead,
		PermSessionsUpdate,
		PermPackagesRead,
		PermScriptsDownload,
	},
	RoleCustomer: {},
}

// RolePermissions returns the permission list declared for role. It panics on
// a role outside the registry: that is a programming fault, not a denial.
func RolePermissions(role Role) []Permission {
	perms, ok := rolePermissions[role]
	if !ok {
		panic(fmt.Sprintf("access: unknown role %q", role))
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// roleGrants reports whether the role's declared permission list contains
// perm. Unknown roles report false so that corrupt membership rows degrade to
// a denial instead of a fault during evaluation.
func roleGrants(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// AssignableRoles returns the ordered roles the user may grant to others: the
// suffix of RoleOrder starting at the user's own highest-privilege role. A
// system-admin row counts only when its tenant is the System Tenant from ctx;
// a system-admin claim anywhere else is ignored. Users with no recognized
// role may only assign customer.
func AssignableRoles(user *User, pctx PermissionContext) []Role {
	if user == nil || len(user.Memberships) == 0 {
		return []Role{RoleCustomer}
	}
	best := -1
	for _, m := range user.Memberships {
		tenantID := m.Tenant.TenantID()
		for _, r := range m.Roles {
			if r == RoleSystemAdmin {
				if pctx.SystemTenantID == "" || tenantID != pctx.SystemTenantID {
					continue
				}
			}
			idx, ok := roleOrderIndex[r]
			if !ok {
				continue
			}
			if best == -1 || idx < best {
				best = idx
			}
		}
	}
	if best == -1 {
		return []Role{RoleCustomer}
	}
	out := make([]Role, len(roleOrder)-best)
	copy(out, roleOrder[best:])
	return out
}

// AssignableRoleOptions returns labelled options for the roles the actor may
// assign. This is the filter-options surface consumed by form rendering.
func AssignableRoleOptions(actor *User, pctx PermissionContext) []RoleOption {
	assignable := AssignableRoles(actor, pctx)
	opts := make([]RoleOption, 0, len(assignable))
	for _, r := range assignable {
		opts = append(opts, RoleOption{Label: RoleLabels[r], Value: r})
	}
	return opts
}
