package identity

import "github.com/google/uuid"

// Role represents an actor's role in the platform
type Role string

const (
	RoleTenant   Role = "TENANT"   // Renter on a lease
	RoleLandlord Role = "LANDLORD" // Property owner
	RoleAdmin    Role = "ADMIN"    // Platform operator
)

// IsValid checks if the role is a valid Role
func (r Role) IsValid() bool {
	switch r {
	case RoleTenant, RoleLandlord, RoleAdmin:
		return true
	}
	return false
}

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

// Actor is the authenticated principal attached to a request. Identity
// management itself lives outside this service; the token layer supplies
// actors already verified.
type Actor struct {
	ID    uuid.UUID `json:"id"`
	Role  Role      `json:"role"`
	Phone string    `json:"phone"`
}

// IsAdmin reports whether the actor is a platform operator
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsLandlord reports whether the actor is a property owner
func (a Actor) IsLandlord() bool {
	return a.Role == RoleLandlord
}
