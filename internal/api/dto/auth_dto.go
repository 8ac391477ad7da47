package dto

import "time"

// LoginRequest payload for POST /api/login.
type LoginRequest struct {
	RestaurantID string `json:"restaurant_id" validate:"required,max=128"`
	Password     string `json:"password" validate:"required,max=256"`
}

// ChangePasswordRequest payload for POST /api/restaurant/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// SessionResponse is returned by login and refresh. Token values travel only
// in cookies.
type SessionResponse struct {
	Message          string    `json:"message"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	RefreshRotated   bool      `json:"refresh_rotated"`
}

// PrincipalResponse describes the caller.
type PrincipalResponse struct {
	RestaurantID string `json:"restaurant_id"`
	Role         string `json:"role"`
}
