package dto

import (
	"time"

	"github.com/gophermarket/gophermarket/internal/model"
)

// ProfileRequest is the body for POST and PUT /api/profiles/me.
type ProfileRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,max=100"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,max=32"`
}

// ProfileResponse represents a user profile in API responses.
type ProfileResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName *string   `json:"displayName"`
	PhoneNumber *string   `json:"phoneNumber"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ToProfileResponse converts a UserProfile model to its response DTO.
func ToProfileResponse(p *model.UserProfile) *ProfileResponse {
	return &ProfileResponse{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		PhoneNumber: p.PhoneNumber,
		CreatedAt:   p.CreatedAt,
	}
}
