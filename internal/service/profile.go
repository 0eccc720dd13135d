package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gophermarket/gophermarket/internal/auth"
	"github.com/gophermarket/gophermarket/internal/model"
	"github.com/gophermarket/gophermarket/internal/repository"
)

// ProfileService manages the caller's own profile.
type ProfileService struct {
	store   ProfileStore
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewProfileService creates a new ProfileService.
func NewProfileService(store ProfileStore, callTimeout time.Duration, logger *slog.Logger) *ProfileService {
	if logger == nil {
		logger = slog.Default()
	}
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	return &ProfileService{
		store:   store,
		timeout: callTimeout,
		logger:  logger.With("component", "profile_service"),
		now:     time.Now,
	}
}

// ProfileInput carries the editable profile fields.
type ProfileInput struct {
	DisplayName *string
	PhoneNumber *string
}

// GetMyProfile returns the profile keyed by the caller's identity.
func (s *ProfileService) GetMyProfile(ctx context.Context, id *auth.Identity) (*model.UserProfile, error) {
	if id == nil || id.Key() == "" {
		return nil, auth.ErrUnauthenticated
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.store.GetProfile(ctx, id.Key())
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// CreateMyProfile creates the caller's profile. It never overwrites an
// existing one.
func (s *ProfileService) CreateMyProfile(ctx context.Context, id *auth.Identity, input ProfileInput) (*model.UserProfile, error) {
	if id == nil || id.Key() == "" {
		return nil, auth.ErrUnauthenticated
	}

	p := &model.UserProfile{
		ID:          id.Key(),
		Email:       id.Email,
		DisplayName: normalizeOptional(input.DisplayName),
		PhoneNumber: normalizeOptional(input.PhoneNumber),
		CreatedAt:   s.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.CreateProfile(ctx, p); err != nil {
		if errors.Is(err, repository.ErrProfileExists) {
			return nil, ErrProfileExists
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.logger.Info("profile created", "profile_id", p.ID)
	return p, nil
}

// UpdateMyProfile overwrites the editable fields of the caller's profile.
func (s *ProfileService) UpdateMyProfile(ctx context.Context, id *auth.Identity, input ProfileInput) (*model.UserProfile, error) {
	p, err := s.GetMyProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	p.DisplayName = normalizeOptional(input.DisplayName)
	p.PhoneNumber = normalizeOptional(input.PhoneNumber)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.UpdateProfile(ctx, p); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.logger.Info("profile updated", "profile_id", p.ID)
	return p, nil
}
