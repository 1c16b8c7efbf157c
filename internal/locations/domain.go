package locations

import "time"

// Location is a physical WiFi site owned by a tenant.
type Location struct {
	ID        string
	TenantID  string
	Name      string
	Address   string
	Timezone  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
