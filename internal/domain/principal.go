package domain

// Role enumerates what a restaurant account may do.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOwner    Role = "owner"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOwner, RoleEmployee:
		return true
	default:
		return false
	}
}

// Principal is the authenticated identity carried inside a credential.
type Principal struct {
	RestaurantID string
	Role         Role
}
