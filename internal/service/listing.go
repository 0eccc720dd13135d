package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/gophermarket/gophermarket/internal/auth"
	"github.com/gophermarket/gophermarket/internal/metrics"
	"github.com/gophermarket/gophermarket/internal/model"
	"github.com/gophermarket/gophermarket/internal/repository"
	"github.com/gophermarket/gophermarket/internal/storage"
)

const (
	defaultEmailDomain = "umn.edu"
	defaultCallTimeout = 20 * time.Second
	priceScale         = 2
)

// ListingServiceConfig holds tunables for ListingService.
type ListingServiceConfig struct {
	AllowedEmailDomain string
	CallTimeout        time.Duration
}

// ListingService handles listing business logic.
type ListingService struct {
	store   ListingStore
	images  storage.ImageStore
	domain  string
	timeout time.Duration
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewListingService creates a new ListingService.
func NewListingService(store ListingStore, images storage.ImageStore, cfg ListingServiceConfig, recorder metrics.Recorder, logger *slog.Logger) *ListingService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	domain := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(cfg.AllowedEmailDomain)), "@")
	if domain == "" {
		domain = defaultEmailDomain
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &ListingService{
		store:   store,
		images:  images,
		domain:  domain,
		timeout: timeout,
		metrics: recorder,
		logger:  logger.With("component", "listing_service"),
		now:     time.Now,
	}
}

// CreateListingInput defines input for creating a listing.
type CreateListingInput struct {
	Title       string
	Description *string
	Price       decimal.Decimal
	Images      []PendingImage
}

// UpdateListingInput defines a partial update. Nil fields are left unchanged;
// a Description pointing at an empty string clears it.
type UpdateListingInput struct {
	Title           *string
	Description     *string
	Price           *decimal.Decimal
	NewImages       []PendingImage
	DeleteImageURLs []string
}

// CreateListing validates the input, uploads images and persists a new listing
// owned by the caller.
func (s *ListingService) CreateListing(ctx context.Context, id *auth.Identity, input CreateListingInput) (*model.Listing, error) {
	if id == nil || id.Email == "" {
		return nil, auth.ErrUnauthenticated
	}
	if !IsAllowedEmail(id.Email, s.domain) {
		return nil, &ValidationError{Field: "contactEmail", Message: s.emailDomainMessage()}
	}

	price, err := validatePrice(input.Price)
	if err != nil {
		return nil, err
	}
	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}
	if err := validateDescription(input.Description); err != nil {
		return nil, err
	}

	images := input.Images
	if len(images) > model.MaxListingImages {
		s.logger.Debug("dropping images over limit",
			"received", len(images),
			"limit", model.MaxListingImages,
		)
		images = images[:model.MaxListingImages]
	}

	urls, err := s.uploadAll(ctx, images, id.Email)
	if err != nil {
		return nil, err
	}

	listing := &model.Listing{
		Title:        title,
		Description:  normalizeOptional(input.Description),
		Price:        price,
		ContactEmail: id.Email,
		OwnerID:      id.Email,
		CreatedAt:    s.now().UTC(),
		ImageURLs:    urls,
	}

	if err := s.call(ctx, func(ctx context.Context) error {
		return s.store.CreateListing(ctx, listing)
	}); err != nil {
		if len(urls) > 0 {
			s.logger.Warn("listing not persisted after image upload",
				"owner", id.Email,
				"orphaned_images", len(urls),
				"error", err,
			)
		}
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	s.metrics.IncListingCreated()
	s.logger.Info("listing created", "listing_id", listing.ID, "owner", listing.OwnerID, "images", len(urls))
	return listing, nil
}

// UpdateListing applies a partial update to a listing owned by the caller.
// New images are uploaded before anything is deleted or persisted.
func (s *ListingService) UpdateListing(ctx context.Context, id *auth.Identity, listingID int64, input UpdateListingInput) (*model.Listing, error) {
	current, err := s.loadOwned(ctx, id, listingID)
	if err != nil {
		return nil, err
	}
	updated := current.Clone()

	if input.Price != nil {
		price, err := validatePrice(*input.Price)
		if err != nil {
			return nil, err
		}
		updated.Price = price
	}
	if input.Title != nil {
		title, err := validateTitle(*input.Title)
		if err != nil {
			return nil, err
		}
		updated.Title = title
	}
	if input.Description != nil {
		if err := validateDescription(input.Description); err != nil {
			return nil, err
		}
		updated.Description = normalizeOptional(input.Description)
	}

	deletions := effectiveDeletions(current, input.DeleteImageURLs)
	capacity := model.MaxListingImages - (len(current.ImageURLs) - len(deletions))
	newImages := input.NewImages
	if capacity < 0 {
		capacity = 0
	}
	if len(newImages) > capacity {
		s.logger.Debug("dropping images over limit",
			"listing_id", listingID,
			"received", len(newImages),
			"capacity", capacity,
		)
		newImages = newImages[:capacity]
	}

	uploaded, err := s.uploadAll(ctx, newImages, current.OwnerID)
	if err != nil {
		return nil, err
	}

	removed := make(map[string]struct{}, len(deletions))
	for _, url := range deletions {
		s.deleteImage(ctx, listingID, url)
		removed[url] = struct{}{}
	}

	kept := make([]string, 0, len(current.ImageURLs)-len(deletions)+len(uploaded))
	for _, url := range current.ImageURLs {
		if _, ok := removed[url]; !ok {
			kept = append(kept, url)
		}
	}
	updated.ImageURLs = append(kept, uploaded...)

	if err := s.call(ctx, func(ctx context.Context) error {
		return s.store.UpdateListing(ctx, updated)
	}); err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}

	s.metrics.IncListingUpdated()
	s.logger.Info("listing updated",
		"listing_id", listingID,
		"images_added", len(uploaded),
		"images_removed", len(deletions),
	)
	return updated, nil
}

// DeleteListing removes a listing owned by the caller along with its images.
// Image deletion is best-effort.
func (s *ListingService) DeleteListing(ctx context.Context, id *auth.Identity, listingID int64) error {
	listing, err := s.loadOwned(ctx, id, listingID)
	if err != nil {
		return err
	}

	for _, url := range listing.ImageURLs {
		s.deleteImage(ctx, listingID, url)
	}

	if err := s.call(ctx, func(ctx context.Context) error {
		return s.store.DeleteListing(ctx, listingID)
	}); err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return ErrListingNotFound
		}
		return fmt.Errorf("failed to delete listing: %w", err)
	}

	s.metrics.IncListingDeleted()
	s.logger.Info("listing deleted", "listing_id", listingID, "owner", listing.OwnerID)
	return nil
}

// GetListing returns a single listing.
func (s *ListingService) GetListing(ctx context.Context, listingID int64) (*model.Listing, error) {
	var listing *model.Listing
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		listing, err = s.store.GetListingByID(ctx, listingID)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return listing, nil
}

// ListListings returns every listing, newest first.
func (s *ListingService) ListListings(ctx context.Context) ([]*model.Listing, error) {
	return s.list(ctx, repository.ListingFilter{})
}

// ListMyListings returns the caller's listings, newest first.
func (s *ListingService) ListMyListings(ctx context.Context, id *auth.Identity) ([]*model.Listing, error) {
	if id == nil || id.Email == "" {
		return nil, auth.ErrUnauthenticated
	}
	return s.list(ctx, repository.ListingFilter{OwnerID: id.Email})
}

func (s *ListingService) list(ctx context.Context, filter repository.ListingFilter) ([]*model.Listing, error) {
	var listings []*model.Listing
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		listings, err = s.store.ListListings(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	if listings == nil {
		listings = []*model.Listing{}
	}
	return listings, nil
}

// loadOwned resolves the listing and checks ownership. Checks run in order:
// identity, existence, ownership.
func (s *ListingService) loadOwned(ctx context.Context, id *auth.Identity, listingID int64) (*model.Listing, error) {
	if id == nil || id.Email == "" {
		return nil, auth.ErrUnauthenticated
	}

	listing, err := s.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	switch auth.Authorize(listing.OwnerID, id) {
	case auth.Allow:
		return listing, nil
	case auth.RequiresIdentity:
		return nil, auth.ErrUnauthenticated
	default:
		s.logger.Warn("ownership check failed",
			"listing_id", listingID,
			"owner", listing.OwnerID,
			"caller", id.Email,
		)
		return nil, ErrNotOwned
	}
}

func (s *ListingService) uploadAll(ctx context.Context, images []PendingImage, owner string) ([]string, error) {
	urls := make([]string, 0, len(images))
	for _, img := range images {
		url, err := s.upload(ctx, img, owner)
		if err != nil {
			s.metrics.IncImageUploadFailed()
			s.logger.Warn("image upload failed",
				"filename", img.Filename,
				"owner", owner,
				"uploaded_before_failure", len(urls),
				"error", err,
			)
			return nil, &UploadError{Filename: img.Filename, Err: err}
		}
		s.metrics.IncImageUploaded()
		urls = append(urls, url)
	}
	return urls, nil
}

func (s *ListingService) upload(ctx context.Context, img PendingImage, owner string) (string, error) {
	if img.Open == nil {
		return "", errors.New("image has no content")
	}
	rc, err := img.Open()
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer rc.Close()

	var url string
	err = s.call(ctx, func(ctx context.Context) error {
		var err error
		url, err = s.images.Upload(ctx, rc, img.Filename, owner)
		return err
	})
	return url, err
}

func (s *ListingService) deleteImage(ctx context.Context, listingID int64, url string) {
	err := s.call(ctx, func(ctx context.Context) error {
		return s.images.Delete(ctx, url)
	})
	if err != nil {
		s.metrics.IncImageDeleteFailed()
		s.logger.Warn("image delete failed",
			"listing_id", listingID,
			"url", url,
			"error", err,
		)
		return
	}
	s.metrics.IncImageDeleted()
}

func (s *ListingService) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}

func (s *ListingService) emailDomainMessage() string {
	label := strings.ToUpper(strings.SplitN(s.domain, ".", 2)[0])
	return fmt.Sprintf("Only %s emails (@%s) are allowed.", label, s.domain)
}

// IsAllowedEmail reports whether email belongs to the given domain.
// The comparison is case-insensitive and requires a non-empty local part.
func IsAllowedEmail(email, domain string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "@")
	if domain == "" {
		return false
	}
	local, ok := strings.CutSuffix(email, "@"+domain)
	return ok && local != "" && !strings.Contains(local, "@")
}

func validatePrice(price decimal.Decimal) (decimal.Decimal, error) {
	price = price.Round(priceScale)
	if !price.IsPositive() {
		return decimal.Zero, &ValidationError{Field: "price", Message: "Price must be greater than $0."}
	}
	return price, nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Field: "title", Message: "Title is required."}
	}
	if utf8.RuneCountInString(title) > model.MaxTitleLength {
		return "", &ValidationError{
			Field:   "title",
			Message: fmt.Sprintf("title must be at most %d characters.", model.MaxTitleLength),
		}
	}
	return title, nil
}

func validateDescription(description *string) error {
	if description != nil && utf8.RuneCountInString(strings.TrimSpace(*description)) > model.MaxDescriptionLength {
		return &ValidationError{
			Field:   "description",
			Message: fmt.Sprintf("description must be at most %d characters.", model.MaxDescriptionLength),
		}
	}
	return nil
}

// effectiveDeletions returns the requested URLs the listing actually holds,
// deduplicated, in request order.
func effectiveDeletions(listing *model.Listing, requested []string) []string {
	seen := make(map[string]struct{}, len(requested))
	out := make([]string, 0, len(requested))
	for _, url := range requested {
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		if listing.HasImage(url) {
			out = append(out, url)
		}
	}
	return out
}

func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
