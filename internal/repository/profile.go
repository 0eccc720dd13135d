package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gophermarket/gophermarket/internal/model"
)

// GetProfile retrieves the profile keyed by id.
func (r *Repository) GetProfile(ctx context.Context, id string) (*model.UserProfile, error) {
	query := `
		SELECT id, email, display_name, phone_number, created_at
		FROM user_profiles
		WHERE id = $1
	`

	var p model.UserProfile
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Email,
		&p.DisplayName,
		&p.PhoneNumber,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

// CreateProfile inserts a profile. Returns ErrProfileExists if one is already
// stored under the same id.
func (r *Repository) CreateProfile(ctx context.Context, p *model.UserProfile) error {
	query := `
		INSERT INTO user_profiles (id, email, display_name, phone_number, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query, p.ID, p.Email, p.DisplayName, p.PhoneNumber, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrProfileExists
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// UpdateProfile overwrites display name and phone number.
func (r *Repository) UpdateProfile(ctx context.Context, p *model.UserProfile) error {
	query := `
		UPDATE user_profiles
		SET display_name = $2, phone_number = $3
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, p.ID, p.DisplayName, p.PhoneNumber)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}

	return nil
}
