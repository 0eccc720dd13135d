// Package model defines domain entities for the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing limits.
const (
	MaxListingImages     = 5
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
)

// Listing represents an item offered for sale.
type Listing struct {
	ID           int64
	Title        string
	Description  *string
	Price        decimal.Decimal
	ContactEmail string
	OwnerID      string
	CreatedAt    time.Time
	ImageURLs    []string
}

// HasImage reports whether url is attached to the listing.
func (l *Listing) HasImage(url string) bool {
	for _, u := range l.ImageURLs {
		if u == url {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, so callers can stage changes without touching the original.
func (l *Listing) Clone() *Listing {
	c := *l
	if l.Description != nil {
		d := *l.Description
		c.Description = &d
	}
	c.ImageURLs = append([]string(nil), l.ImageURLs...)
	return &c
}
