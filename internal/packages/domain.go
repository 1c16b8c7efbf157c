package packages

import "time"

// Package is a purchasable WiFi access plan owned by a tenant.
type Package struct {
	ID              string
	TenantID        string
	Name            string
	Description     string
	DurationMinutes int
	DownloadKbps    int
	UploadKbps      int
	PriceCents      int64
	Currency        string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
