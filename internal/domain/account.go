package domain

import "time"

// Account is a restaurant login record.
type Account struct {
	RestaurantID string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal returns the identity to embed in issued tokens.
func (a *Account) Principal() Principal {
	return Principal{RestaurantID: a.RestaurantID, Role: a.Role}
}
