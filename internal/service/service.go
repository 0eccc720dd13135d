// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gophermarket/gophermarket/internal/model"
	"github.com/gophermarket/gophermarket/internal/repository"
)

// Service errors.
var (
	ErrListingNotFound = errors.New("listing not found")
	ErrNotOwned        = errors.New("listing belongs to another user")
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")
)

// ValidationError reports the first input constraint a request violated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UploadError reports an image the image store refused.
type UploadError struct {
	Filename string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload image %q: %v", e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// ListingStore is the record store for listings.
type ListingStore interface {
	CreateListing(ctx context.Context, listing *model.Listing) error
	GetListingByID(ctx context.Context, id int64) (*model.Listing, error)
	ListListings(ctx context.Context, filter repository.ListingFilter) ([]*model.Listing, error)
	CountListings(ctx context.Context) (int64, error)
	UpdateListing(ctx context.Context, listing *model.Listing) error
	DeleteListing(ctx context.Context, id int64) error
}

// ProfileStore is the record store for user profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (*model.UserProfile, error)
	CreateProfile(ctx context.Context, p *model.UserProfile) error
	UpdateProfile(ctx context.Context, p *model.UserProfile) error
}

// PendingImage is an image received with a request and not yet uploaded.
type PendingImage struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}
