package users

import (
	"time"

	"github.com/cogivn/iwas/internal/access"
)

// User represents an identity account with its tenant memberships.
type User struct {
	ID                 string
	Email              string
	Name               string
	PasswordHash       string
	LegacyRole         string
	IsActive           bool
	Memberships        []access.Membership
	AssignedLocations  []string
	CanDownloadScripts bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AccessView projects the account into the shape the permission layer
// evaluates.
func (u *User) AccessView() *access.User {
	if u == nil {
		return nil
	}
	return &access.User{
		ID:                 u.ID,
		Email:              u.Email,
		LegacyRole:         u.LegacyRole,
		Memberships:        u.Memberships,
		AssignedLocations:  u.AssignedLocations,
		CanDownloadScripts: u.CanDownloadScripts,
	}
}
