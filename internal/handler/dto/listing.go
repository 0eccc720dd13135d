// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gophermarket/gophermarket/internal/model"
)

// CreateListingRequest is the listingData payload for POST /api/listings.
// Any contactEmail sent by the client is ignored; the verified email is used.
type CreateListingRequest struct {
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

// UpdateListingRequest is the listingData payload for PATCH /api/listings/{id}.
// Only fields present in the payload are applied.
type UpdateListingRequest struct {
	Title       Optional[string]          `json:"title"`
	Description Optional[string]          `json:"description"`
	Price       Optional[decimal.Decimal] `json:"price"`
}

// ListingResponse represents a listing in API responses.
type ListingResponse struct {
	ID           int64       `json:"id"`
	Title        string      `json:"title"`
	Description  *string     `json:"description"`
	Price        json.Number `json:"price"`
	ContactEmail string      `json:"contactEmail"`
	OwnerID      string      `json:"ownerId"`
	CreatedAt    time.Time   `json:"createdAt"`
	ImageURLs    []string    `json:"imageUrls"`
}

// ToListingResponse converts a Listing model to its response DTO.
func ToListingResponse(l *model.Listing) *ListingResponse {
	urls := l.ImageURLs
	if urls == nil {
		urls = []string{}
	}
	return &ListingResponse{
		ID:           l.ID,
		Title:        l.Title,
		Description:  l.Description,
		Price:        json.Number(l.Price.StringFixed(2)),
		ContactEmail: l.ContactEmail,
		OwnerID:      l.OwnerID,
		CreatedAt:    l.CreatedAt,
		ImageURLs:    urls,
	}
}

// ToListingResponses converts a slice of listings.
func ToListingResponses(listings []*model.Listing) []*ListingResponse {
	out := make([]*ListingResponse, len(listings))
	for i, l := range listings {
		out[i] = ToListingResponse(l)
	}
	return out
}
