package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Membership roles.
const (
	RoleOwner  = "Owner"
	RoleMember = "Member"
)

// Membership links a user to an organization.
type Membership struct {
	OrgID    uuid.UUID `json:"orgId"`
	Name     string    `json:"name"` // organization name at the time of joining
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// User is an account holder. Memberships are ordered by join time.
type User struct {
	UserID       uuid.UUID    `json:"id"` // UUIDv7
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	Memberships  []Membership `json:"orgs"`
	ActiveOrgID  *uuid.UUID   `json:"currentOrgId,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Membership returns the membership for orgID, if any.
func (u *User) Membership(orgID uuid.UUID) (Membership, bool) {
	i := slices.IndexFunc(u.Memberships, func(m Membership) bool { return m.OrgID == orgID })
	if i < 0 {
		return Membership{}, false
	}
	return u.Memberships[i], true
}

// IsMember reports whether the user belongs to orgID.
func (u *User) IsMember(orgID uuid.UUID) bool {
	_, ok := u.Membership(orgID)
	return ok
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	clone := *u
	clone.Memberships = slices.Clone(u.Memberships)
	if u.ActiveOrgID != nil {
		id := *u.ActiveOrgID
		clone.ActiveOrgID = &id
	}
	return &clone
}
