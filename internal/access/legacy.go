package access

// Legacy role predicates kept for backward compatibility during the
// migration away from the single global role field. New code should use
// HasPermission and the Evaluator instead of checking roles directly.

// legacyAdminRole is the value of the deprecated global role field that used
// to mark a super admin before tenant memberships existed.
const legacyAdminRole = "admin"

// IsSuperAdmin reports whether the deprecated global role field marks the
// user as a super admin.
//
// Deprecated: superseded by system-admin membership in the System Tenant.
func IsSuperAdmin(user *User) bool {
	return user != nil && user.LegacyRole == legacyAdminRole
}

// IsOrgAdmin reports whether the user is an organization admin in any tenant.
func IsOrgAdmin(user *User) bool {
	if IsSuperAdmin(user) {
		return true
	}
	return HasRoleAnywhere(user, RoleOrgAdmin)
}

// IsLocationManager reports whether the user manages locations in any tenant.
func IsLocationManager(user *User) bool {
	if IsSuperAdmin(user) || IsOrgAdmin(user) {
		return true
	}
	return HasRoleAnywhere(user, RoleLocManager)
}

// IsCustomer reports whether the user holds the customer role in any tenant.
func IsCustomer(user *User) bool {
	return HasRoleAnywhere(user, RoleCustomer)
}

// IsOrgAdminForTenant reports whether the user is an organization admin of
// the given tenant.
func IsOrgAdminForTenant(user *User, tenantID string) bool {
	if IsSuperAdmin(user) {
		return true
	}
	if user == nil {
		return false
	}
	for _, m := range user.Memberships {
		if m.Tenant.TenantID() == tenantID && containsRole(m.Roles, RoleOrgAdmin) {
			return true
		}
	}
	return false
}

// OrgAdminScope scopes tenant-owned rows to the user's tenants. Super admins
// are unrestricted.
func OrgAdminScope(user *User) Decision {
	if IsSuperAdmin(user) {
		return Grant()
	}
	ids := TenantIDs(user)
	if len(ids) == 0 {
		return Deny()
	}
	return GrantWhere(TenantIn(ids))
}

// LocationManagerScope scopes location rows: unrestricted for super admins,
// tenant-scoped for org admins, otherwise restricted to the user's assigned
// locations.
func LocationManagerScope(user *User) Decision {
	if IsSuperAdmin(user) {
		return Grant()
	}
	if IsOrgAdmin(user) {
		return OrgAdminScope(user)
	}
	if user == nil || len(user.AssignedLocations) == 0 {
		return Deny()
	}
	return GrantWhere(Filter{Column: "id", In: user.AssignedLocations})
}

// LocationDataScope scopes rows that reference a location (guest sessions and
// similar) by the user's assigned locations.
func LocationDataScope(user *User) Decision {
	if IsSuperAdmin(user) {
		return Grant()
	}
	if IsOrgAdmin(user) {
		return OrgAdminScope(user)
	}
	if user == nil || len(user.AssignedLocations) == 0 {
		return Deny()
	}
	return GrantWhere(Filter{Column: "location_id", In: user.AssignedLocations})
}

// CustomerScope restricts rows carrying a user reference to the user's own.
func CustomerScope(user *User) Decision {
	if user == nil {
		return Deny()
	}
	return GrantWhere(Filter{Column: "user_id", Equals: user.ID})
}
