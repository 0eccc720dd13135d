// Package auth verifies bearer tokens and authorizes access to owned resources.
package auth

import (
	"context"
	"errors"
	"strings"
)

// Verification errors. Verifiers wrap one of these so callers can tell a
// rejected token apart from a provider that could not be reached.
var (
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrVerifierUnavailable = errors.New("identity provider unavailable")
	ErrUnauthenticated     = errors.New("authentication required")
)

// Identity is the verified caller of a request.
type Identity struct {
	Email   string
	Subject string
}

// Key returns the stable identifier used to key per-user records: the
// subject, else the lowercased email so address casing cannot split records.
func (i *Identity) Key() string {
	if i.Subject != "" {
		return i.Subject
	}
	return strings.ToLower(strings.TrimSpace(i.Email))
}

// Verifier turns a raw bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Outcome describes what happened when a request's credentials were checked.
type Outcome string

const (
	OutcomeAnonymous   Outcome = "anonymous"
	OutcomeVerified    Outcome = "verified"
	OutcomeInvalid     Outcome = "invalid"
	OutcomeUnavailable Outcome = "unavailable"
)

// Principal is attached to every request that passed the auth middleware.
type Principal struct {
	Identity *Identity
	Outcome  Outcome
}

// Classify maps a verifier result to an Outcome.
func Classify(id *Identity, err error) Outcome {
	switch {
	case err == nil && id != nil:
		return OutcomeVerified
	case errors.Is(err, ErrVerifierUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return OutcomeUnavailable
	default:
		return OutcomeInvalid
	}
}
