package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gophermarket/gophermarket/internal/model"
)

type sampleListing struct {
	title string
	price string
	owner string
}

var sampleListings = []sampleListing{
	{title: "Calculus Textbook", price: "25.99", owner: "user1@umn.edu"},
	{title: "Bike", price: "120.50", owner: "user2@umn.edu"},
}

// SeedSampleListings inserts a couple of demo listings when the store is
// empty. It returns the number of listings inserted.
func (s *ListingService) SeedSampleListings(ctx context.Context) (int, error) {
	var count int64
	if err := s.call(ctx, func(ctx context.Context) error {
		var err error
		count, err = s.store.CountListings(ctx)
		return err
	}); err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	if count > 0 {
		s.logger.Debug("store not empty, skipping seed", "listings", count)
		return 0, nil
	}

	base := s.now().UTC()
	for i, sample := range sampleListings {
		listing := &model.Listing{
			Title:        sample.title,
			Price:        decimal.RequireFromString(sample.price),
			ContactEmail: sample.owner,
			OwnerID:      sample.owner,
			CreatedAt:    base.Add(time.Duration(i) * time.Second),
			ImageURLs:    []string{},
		}
		if err := s.call(ctx, func(ctx context.Context) error {
			return s.store.CreateListing(ctx, listing)
		}); err != nil {
			return i, fmt.Errorf("failed to seed listing %q: %w", sample.title, err)
		}
	}

	s.logger.Info("seeded sample listings", "count", len(sampleListings))
	return len(sampleListings), nil
}
