package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/gophermarket/gophermarket/internal/model"
)

// ListingFilter narrows ListListings.
type ListingFilter struct {
	// OwnerID matches case-insensitively when set.
	OwnerID string
}

var listingColumns = []string{
	"id", "title", "description", "price", "contact_email", "owner_id", "created_at", "image_urls",
}

// CreateListing inserts a listing and sets its ID.
func (r *Repository) CreateListing(ctx context.Context, listing *model.Listing) error {
	query := `
		INSERT INTO listings (title, description, price, contact_email, owner_id, created_at, image_urls)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		listing.Title,
		listing.Description,
		listing.Price,
		listing.ContactEmail,
		listing.OwnerID,
		listing.CreatedAt,
		pq.Array(imageURLsOrEmpty(listing.ImageURLs)),
	).Scan(&listing.ID)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}

	return nil
}

// GetListingByID retrieves a listing by its ID.
func (r *Repository) GetListingByID(ctx context.Context, id int64) (*model.Listing, error) {
	query, args, err := psql.Select(listingColumns...).
		From("listings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	listing, err := scanListing(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	return listing, nil
}

// ListListings returns listings newest first.
func (r *Repository) ListListings(ctx context.Context, filter ListingFilter) ([]*model.Listing, error) {
	builder := psql.Select(listingColumns...).
		From("listings").
		OrderBy("created_at DESC", "id DESC")
	if filter.OwnerID != "" {
		builder = builder.Where("lower(owner_id) = lower(?)", filter.OwnerID)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	listings := make([]*model.Listing, 0)
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate listings: %w", err)
	}

	return listings, nil
}

// CountListings returns the number of stored listings.
func (r *Repository) CountListings(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM listings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return n, nil
}

// UpdateListing overwrites the mutable fields of a listing.
// Owner, contact email and creation time are never changed.
func (r *Repository) UpdateListing(ctx context.Context, listing *model.Listing) error {
	query, args, err := psql.Update("listings").
		Set("title", listing.Title).
		Set("description", listing.Description).
		Set("price", listing.Price).
		Set("image_urls", pq.Array(imageURLsOrEmpty(listing.ImageURLs))).
		Where(squirrel.Eq{"id": listing.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrListingNotFound
	}

	return nil
}

// DeleteListing removes a listing.
func (r *Repository) DeleteListing(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrListingNotFound
	}
	return nil
}

func scanListing(row pgx.Row) (*model.Listing, error) {
	var l model.Listing
	var urls []string

	err := row.Scan(
		&l.ID,
		&l.Title,
		&l.Description,
		&l.Price,
		&l.ContactEmail,
		&l.OwnerID,
		&l.CreatedAt,
		&urls,
	)
	if err != nil {
		return nil, err
	}

	l.CreatedAt = l.CreatedAt.UTC()
	l.ImageURLs = imageURLsOrEmpty(urls)
	return &l, nil
}

func imageURLsOrEmpty(urls []string) []string {
	if urls == nil {
		return []string{}
	}
	return urls
}
