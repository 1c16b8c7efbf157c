// Package access implements the permission model for the platform: a closed
// permission registry, the role hierarchy, the system-tenant resolver, the
// permission evaluator and the query-scoping helpers consumed by every
// tenant-scoped collection. All access control goes through this package
// instead of checking role slugs directly.
package access

// Permission is an atomic capability token. The set of permissions is closed:
// every value is declared below and never sourced from the database or
// configuration.
type Permission string

// Platform management permissions. Only system-admin holds these.
const (
	PermSystemManage  Permission = "system:manage"
	PermTenantsRead   Permission = "tenants:read"
	PermTenantsCreate Permission = "tenants:create"
	PermTenantsUpdate Permission = "tenants:update"
	PermTenantsDelete Permission = "tenants:delete"
)

// Tenant-operational permissions.
const (
	PermAdminAccess Permission = "admin:access"

	// PermUsersRead grants reading users in scope: system-admin sees all,
	// org-admin sees users in their tenant(s).
	PermUsersRead Permission = "users:read"
	// PermUsersReadSelf grants reading only the caller's own user record.
	PermUsersReadSelf Permission = "users:read-self"
	PermUsersCreate   Permission = "users:create"
	PermUsersUpdate   Permission = "users:update"
	PermUsersDelete   Permission = "users:delete"

	PermLocationsRead   Permission = "locations:read"
	PermLocationsCreate Permission = "locations:create"
	PermLocationsUpdate Permission = "locations:update"
	PermLocationsDelete Permission = "locations:delete"

	PermPackagesRead   Permission = "packages:read"
	PermPackagesCreate Permission = "packages:create"
	PermPackagesUpdate Permission = "packages:update"
	PermPackagesDelete Permission = "packages:delete"

	PermSessionsRead   Permission = "sessions:read"
	PermSessionsUpdate Permission = "sessions:update"

	PermMediaRead   Permission = "media:read"
	PermMediaCreate Permission = "media:create"
	PermMediaUpdate Permission = "media:update"
	PermMediaDelete Permission = "media:delete"

	PermScriptsDownload Permission = "scripts:download"
)

// AllPermissions returns every permission in the registry. Used by tests that
// assert registry invariants.
func AllPermissions() []Permission {
	return []Permission{
		PermSystemManage,
		PermTenantsRead,
		PermTenantsCreate,
		PermTenantsUpdate,
		PermTenantsDelete,
		PermAdminAccess,
		PermUsersRead,
		PermUsersReadSelf,
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
}
