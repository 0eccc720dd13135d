package auth

import (
	"context"
	"fmt"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// principalContextKey is the context key for storing Principal.
	principalContextKey contextKey = "principal"
)

// ContextWithPrincipal adds the Principal to the context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext retrieves the Principal from the context.
// Requests that never went through the auth middleware are anonymous.
func PrincipalFromContext(ctx context.Context) Principal {
	p, ok := ctx.Value(principalContextKey).(Principal)
	if !ok {
		return Principal{Outcome: OutcomeAnonymous}
	}
	return p
}

// RequireIdentity returns the verified identity of the request, or an error
// wrapping ErrUnauthenticated that says why there is none.
func RequireIdentity(ctx context.Context) (*Identity, error) {
	p := PrincipalFromContext(ctx)
	if p.Identity != nil {
		return p.Identity, nil
	}

	switch p.Outcome {
	case OutcomeInvalid:
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrInvalidToken)
	case OutcomeUnavailable:
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrVerifierUnavailable)
	default:
		return nil, ErrUnauthenticated
	}
}
