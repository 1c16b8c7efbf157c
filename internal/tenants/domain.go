package tenants

import "time"

// Tenant is an organizational scope partitioning data ownership. The tenants
// with slugs "system" and "default" are reserved: the first carries platform
// authority, the second receives self-registered users.
type Tenant struct {
	ID        string
	Name      string
	Slug      string
	Domain    string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Overview aggregates per-tenant usage counters.
type Overview struct {
	Tenant    Tenant
	Users     int64
	Locations int64
	Packages  int64
}
