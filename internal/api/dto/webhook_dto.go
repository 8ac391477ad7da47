package dto

// WebhookUpdateRequest payload for POST /api/webhook/updates.
type WebhookUpdateRequest struct {
	RestaurantID string `json:"restaurant_id" validate:"required,max=128"`
}
