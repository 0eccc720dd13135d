package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Errors shared by every record store implementation.
var (
	ErrListingNotFound = errors.New("listing not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")
)

// pgUniqueViolation is the PostgreSQL error code for unique_violation.
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
