// Package sqlite provides a SQLite-backed record store for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/gophermarket/gophermarket/internal/model"
	"github.com/gophermarket/gophermarket/internal/repository"
)

//go:embed schema.sql
var schemaSQL string

// Store persists listings and profiles in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and ensures the schema exists.
// path may be a plain file path or a "file:" URI.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := path
	if !strings.HasPrefix(path, "file:") {
		dsn = filepath.Clean(path)
	}
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent requests.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schemaSQL); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// CreateListing inserts a listing and sets its ID.
func (s *Store) CreateListing(ctx context.Context, listing *model.Listing) error {
	urls, err := encodeURLs(listing.ImageURLs)
	if err != nil {
		return err
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO listings (title, description, price, contact_email, owner_id, created_at, image_urls)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		listing.Title,
		nullString(listing.Description),
		listing.Price.String(),
		listing.ContactEmail,
		listing.OwnerID,
		toMillis(listing.CreatedAt),
		urls,
	)
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read listing id: %w", err)
	}
	listing.ID = id
	return nil
}

// GetListingByID retrieves a listing by its ID.
func (s *Store) GetListingByID(ctx context.Context, id int64) (*model.Listing, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, title, description, price, contact_email, owner_id, created_at, image_urls
		 FROM listings WHERE id = ?`, id)

	listing, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrListingNotFound
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return listing, nil
}

// ListListings returns listings newest first.
func (s *Store) ListListings(ctx context.Context, filter repository.ListingFilter) ([]*model.Listing, error) {
	query := `SELECT id, title, description, price, contact_email, owner_id, created_at, image_urls FROM listings`
	var args []any
	if filter.OwnerID != "" {
		query += ` WHERE owner_id = ? COLLATE NOCASE`
		args = append(args, filter.OwnerID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	listings := make([]*model.Listing, 0)
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}
	return listings, nil
}

// CountListings returns the number of stored listings.
func (s *Store) CountListings(ctx context.Context) (int64, error) {
	var n int64
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return n, nil
}

// UpdateListing overwrites the mutable fields of a listing.
func (s *Store) UpdateListing(ctx context.Context, listing *model.Listing) error {
	urls, err := encodeURLs(listing.ImageURLs)
	if err != nil {
		return err
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE listings SET title = ?, description = ?, price = ?, image_urls = ? WHERE id = ?`,
		listing.Title,
		nullString(listing.Description),
		listing.Price.String(),
		urls,
		listing.ID,
	)
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	return requireAffected(res, repository.ErrListingNotFound)
}

// DeleteListing removes a listing.
func (s *Store) DeleteListing(ctx context.Context, id int64) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	return requireAffected(res, repository.ErrListingNotFound)
}

// GetProfile retrieves the profile keyed by id.
func (s *Store) GetProfile(ctx context.Context, id string) (*model.UserProfile, error) {
	var (
		p         model.UserProfile
		name      sql.NullString
		phone     sql.NullString
		createdAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, email, display_name, phone_number, created_at FROM user_profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.Email, &name, &phone, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	p.DisplayName = stringPtr(name)
	p.PhoneNumber = stringPtr(phone)
	p.CreatedAt = fromMillis(createdAt)
	return &p, nil
}

// CreateProfile inserts a profile.
func (s *Store) CreateProfile(ctx context.Context, p *model.UserProfile) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO user_profiles (id, email, display_name, phone_number, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Email, nullString(p.DisplayName), nullString(p.PhoneNumber), toMillis(p.CreatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return repository.ErrProfileExists
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// UpdateProfile overwrites display name and phone number.
func (s *Store) UpdateProfile(ctx context.Context, p *model.UserProfile) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE user_profiles SET display_name = ?, phone_number = ? WHERE id = ?`,
		nullString(p.DisplayName), nullString(p.PhoneNumber), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return requireAffected(res, repository.ErrProfileNotFound)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanListing(row scanner) (*model.Listing, error) {
	var (
		l         model.Listing
		desc      sql.NullString
		createdAt int64
		urls      string
	)
	if err := row.Scan(&l.ID, &l.Title, &desc, &l.Price, &l.ContactEmail, &l.OwnerID, &createdAt, &urls); err != nil {
		return nil, err
	}

	l.Description = stringPtr(desc)
	l.CreatedAt = fromMillis(createdAt)
	if err := json.Unmarshal([]byte(urls), &l.ImageURLs); err != nil {
		return nil, fmt.Errorf("decode image urls: %w", err)
	}
	if l.ImageURLs == nil {
		l.ImageURLs = []string{}
	}
	return &l, nil
}

func encodeURLs(urls []string) (string, error) {
	if urls == nil {
		urls = []string{}
	}
	data, err := json.Marshal(urls)
	if err != nil {
		return "", fmt.Errorf("encode image urls: %w", err)
	}
	return string(data), nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
