package access

// TenantRecord is the access-layer view of a tenant: just enough to resolve
// identity and activity during evaluation. Repositories map their full domain
// rows into this shape when hydrating memberships.
type TenantRecord struct {
	ID       string
	Name     string
	Slug     string
	IsActive bool
}

// TenantRef points at a tenant either by bare id or as a hydrated record.
// A hydrated record wins over the raw id.
type TenantRef struct {
	ID     string
	Record *TenantRecord
}

// TenantID normalizes the reference to a bare tenant id. Never fails: an
// empty reference resolves to the empty string.
func (r TenantRef) TenantID() string {
	if r.Record != nil {
		return r.Record.ID
	}
	return r.ID
}

// Membership assigns a set of roles to a user within one tenant. Rows whose
// role set is empty are invalid and pruned by the assignment guard.
type Membership struct {
	Tenant TenantRef
	Roles  []Role
}

// User is the access-layer view of an identity record. LegacyRole carries the
// deprecated single global role field ("admin" or "user"); the evaluator
// ignores it, only the legacy predicates still honor it.
type User struct {
	ID          string
	Email       string
	LegacyRole  string
	Memberships []Membership

	// Loc-manager fields from the identity record.
	AssignedLocations  []string
	CanDownloadScripts bool
}

// TenantIDs returns the tenant ids of all memberships in order, with empty
// references filtered out. Duplicates are kept.
func TenantIDs(user *User) []string {
	if user == nil {
		return nil
	}
	ids := make([]string, 0, len(user.Memberships))
	for _, m := range user.Memberships {
		if id := m.Tenant.TenantID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// HasRoleAnywhere reports whether any membership's role set contains role.
func HasRoleAnywhere(user *User, role Role) bool {
	if user == nil {
		return false
	}
	for _, m := range user.Memberships {
		for _, r := range m.Roles {
			if r == role {
				return true
			}
		}
	}
	return false
}
