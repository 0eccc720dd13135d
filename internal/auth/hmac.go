package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HMACIssuer is the issuer stamped on locally minted tokens.
const HMACIssuer = "gophermarket-dev"

// identityClaims extends standard JWT claims with the caller's email.
type identityClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// HMACVerifier validates HS256 tokens signed with a shared secret.
// Intended for local development and tests.
type HMACVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewHMACVerifier creates a verifier for tokens minted by IssueHMACToken.
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Verify implements Verifier.
func (v *HMACVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}

	claims := &identityClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(HMACIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return identityFromClaims(claims)
}

// IssueHMACToken signs an HS256 token for id valid for ttl.
func IssueHMACToken(secret string, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := identityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Key(),
			Issuer:    HMACIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: id.Email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func identityFromClaims(claims *identityClaims) (*Identity, error) {
	email := strings.TrimSpace(claims.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: missing email claim", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &Identity{Email: email, Subject: claims.Subject}, nil
}
