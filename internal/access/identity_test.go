package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cogivn/iwas/internal/access"
)

func TestTenantRefNormalization(t *testing.T) {
	bare := access.TenantRef{ID: "t-1"}
	assert.Equal(t, "t-1", bare.TenantID())

	hydrated := access.TenantRef{ID: "stale", Record: &access.TenantRecord{ID: "t-2", Slug: "acme"}}
	assert.Equal(t, "t-2", hydrated.TenantID(), "hydrated record wins over raw id")

	assert.Equal(t, "", access.TenantRef{}.TenantID())
}

func TestTenantIDs(t *testing.T) {
	assert.Nil(t, access.TenantIDs(nil))

	user := userWith(
		membership("t-1", access.RoleCustomer),
		access.Membership{Tenant: access.TenantRef{}, Roles: []access.Role{access.RoleCustomer}},
		membership("t-2", access.RoleOrgAdmin),
		membership("t-1", access.RoleLocManager),
	)
	// Order preserved, empty refs dropped, duplicates kept.
	assert.Equal(t, []string{"t-1", "t-2", "t-1"}, access.TenantIDs(user))
}

func TestHasRoleAnywhere(t *testing.T) {
	user := userWith(
		membership("t-1", access.RoleCustomer),
		membership("t-2", access.RoleLocManager),
	)
	assert.True(t, access.HasRoleAnywhere(user, access.RoleLocManager))
	assert.False(t, access.HasRoleAnywhere(user, access.RoleOrgAdmin))
	assert.False(t, access.HasRoleAnywhere(nil, access.RoleCustomer))
}
