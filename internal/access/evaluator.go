package access

// HasPermission reports whether user holds perm under pctx.
//
// A system-admin membership is only honored when its tenant id equals the
// resolved System Tenant id: holding admin-like roles in any other tenant
// never grants platform-wide authority. The membership loop below skips the
// System Tenant row so a system-admin grant is never double-counted as an
// ordinary tenant role.
func HasPermission(user *User, perm Permission, pctx PermissionContext) bool {
	if user == nil {
		return false
	}

	if pctx.SystemTenantID != "" {
		for _, m := range user.Memberships {
			if m.Tenant.TenantID() != pctx.SystemTenantID {
				continue
			}
			if !containsRole(m.Roles, RoleSystemAdmin) {
				continue
			}
			if roleGrants(RoleSystemAdmin, perm) {
				return true
			}
			break
		}
	}

	for _, m := range user.Memberships {
		tid := m.Tenant.TenantID()
		if tid != "" && pctx.SystemTenantID != "" && tid == pctx.SystemTenantID {
			continue
		}
		for _, r := range m.Roles {
			if _, ok := rolePermissions[r]; !ok {
				continue
			}
			if roleGrants(r, perm) {
				return true
			}
		}
	}

	return false
}

// CanAccessAdmin reports whether the user may enter the management surface.
func CanAccessAdmin(user *User, pctx PermissionContext) bool {
	return HasPermission(user, PermAdminAccess, pctx)
}

func containsRole(roles []Role, want Role) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
