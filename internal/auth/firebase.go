package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// firebaseCertsURL publishes the certificates that sign Firebase ID tokens.
	firebaseCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"
	firebaseIssuer   = "https://securetoken.google.com/"

	defaultCertsTTL   = time.Hour
	minRefreshBackoff = 30 * time.Second
	tokenLeeway       = 30 * time.Second
)

// FirebaseVerifier validates Firebase Authentication ID tokens (RS256).
type FirebaseVerifier struct {
	projectID  string
	certsURL   string
	httpClient *http.Client
	log        *slog.Logger
	now        func() time.Time

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	expiresAt   time.Time
	lastFetched time.Time
}

// FirebaseOption customizes a FirebaseVerifier.
type FirebaseOption func(*FirebaseVerifier)

// WithCertsURL overrides the certificate endpoint.
func WithCertsURL(u string) FirebaseOption {
	return func(v *FirebaseVerifier) { v.certsURL = u }
}

// WithHTTPClient overrides the client used to fetch certificates.
func WithHTTPClient(c *http.Client) FirebaseOption {
	return func(v *FirebaseVerifier) { v.httpClient = c }
}

// WithClock overrides the time source used for claim validation and key expiry.
func WithClock(now func() time.Time) FirebaseOption {
	return func(v *FirebaseVerifier) { v.now = now }
}

// NewFirebaseVerifier creates a verifier for ID tokens of projectID.
func NewFirebaseVerifier(projectID string, logger *slog.Logger, opts ...FirebaseOption) *FirebaseVerifier {
	v := &FirebaseVerifier{
		projectID:  projectID,
		certsURL:   firebaseCertsURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        logger.With("adapter", "firebase_auth"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify implements Verifier.
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}

	claims := &identityClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid header", ErrInvalidToken)
		}
		return v.publicKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer(firebaseIssuer+v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(tokenLeeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if Classify(nil, err) == OutcomeUnavailable {
			return nil, fmt.Errorf("%w: %w", ErrVerifierUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return identityFromClaims(claims)
}

// publicKey returns the signing key for kid, refreshing the certificate set
// when it has expired or does not contain kid.
func (v *FirebaseVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := v.now().Before(v.expiresAt)
	recentlyFetched := v.now().Sub(v.lastFetched) < minRefreshBackoff
	v.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}
	if !ok && fresh && recentlyFetched {
		return nil, fmt.Errorf("%w: unknown key id %q", ErrInvalidToken, kid)
	}

	if err := v.refresh(ctx); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	key, ok = v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: unknown key id %q", ErrInvalidToken, kid)
	}
	return key, nil
}

func (v *FirebaseVerifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return fmt.Errorf("%w: build certs request: %w", ErrVerifierUnavailable, err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.log.ErrorContext(ctx, "firebase certs fetch failed", slog.String("error", err.Error()))
		return fmt.Errorf("%w: fetch certs: %w", ErrVerifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.log.ErrorContext(ctx, "firebase certs fetch failed", slog.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: certs endpoint returned %d", ErrVerifierUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read certs: %w", ErrVerifierUnavailable, err)
	}

	var certs map[string]string
	if err := json.Unmarshal(body, &certs); err != nil {
		return fmt.Errorf("%w: decode certs: %w", ErrVerifierUnavailable, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, pemCert := range certs {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemCert))
		if err != nil {
			v.log.WarnContext(ctx, "skipping unparsable firebase cert", slog.String("kid", kid))
			continue
		}
		keys[kid] = key
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: no usable certificates", ErrVerifierUnavailable)
	}

	now := v.now()
	v.mu.Lock()
	v.keys = keys
	v.lastFetched = now
	v.expiresAt = now.Add(maxAge(resp.Header.Get("Cache-Control")))
	v.mu.Unlock()

	v.log.DebugContext(ctx, "firebase certs refreshed", slog.Int("count", len(keys)))
	return nil
}

// maxAge extracts max-age from a Cache-Control header.
func maxAge(cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		value, ok := strings.CutPrefix(directive, "max-age=")
		if !ok {
			continue
		}
		secs, err := strconv.Atoi(value)
		if err != nil || secs <= 0 {
			break
		}
		return time.Duration(secs) * time.Second
	}
	return defaultCertsTTL
}
