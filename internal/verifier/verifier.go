// Package verifier validates access tokens the way a downstream service does: it only
// knows the published JWKS, never the private key.
package verifier

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"

	apperrors "github.com/allisson/identity/internal/errors"
	"github.com/allisson/identity/internal/keys/domain"
)

const defaultTimeout = 10 * time.Second

// Config configures a JWKS-backed verifier.
type Config struct {
	// JWKSURL is the discovery endpoint, e.g. https://identity.internal/.well-known/jwks.json.
	JWKSURL string
	// HTTPClient is used for JWKS fetches. Defaults to a client with Timeout.
	HTTPClient *http.Client
	// Timeout bounds the initial JWKS registration and the default client.
	Timeout time.Duration
}

type keySetSource func(ctx context.Context) (jwk.Set, error)

// Verifier checks RS256 tokens against a JWKS.
type Verifier struct {
	keySet keySetSource
	now    func() time.Time
}

// NewJWKSVerifier creates a verifier that fetches and caches the JWKS at cfg.JWKSURL.
// The first fetch happens on the first Verify call and is retried on later calls
// until it succeeds; the cache then refreshes in the background until ctx is canceled.
func NewJWKSVerifier(ctx context.Context, cfg Config) (*Verifier, error) {
	if strings.TrimSpace(cfg.JWKSURL) == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "jwks url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	cache, err := jwk.NewCache(ctx, httprc.NewClient(httprc.WithHTTPClient(cfg.HTTPClient)))
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS cache: %w", err)
	}

	remote := &remoteKeySet{cache: cache, url: cfg.JWKSURL, timeout: cfg.Timeout}
	return &Verifier{keySet: remote.lookup, now: time.Now}, nil
}

// NewStaticVerifier creates a verifier over a fixed JWKS document.
func NewStaticVerifier(jwksJSON []byte) (*Verifier, error) {
	set, err := jwk.Parse(jwksJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: parse jwks: %w", domain.ErrKeyFormat, err)
	}
	if set.Len() == 0 {
		return nil, fmt.Errorf("%w: jwks has no keys", domain.ErrKeyFormat)
	}
	return &Verifier{
		keySet: func(context.Context) (jwk.Set, error) { return set, nil },
		now:    time.Now,
	}, nil
}

// Verify checks the signature, algorithm, kid and expiry of tokenString and
// returns its claims. Every failure wraps domain.ErrInvalidToken.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*domain.TokenClaims, error) {
	claims := &domain.AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (any, error) {
			return v.publicKey(ctx, token)
		},
		jwt.WithValidMethods([]string{domain.SigningAlgorithm}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}
	return claims.ToTokenClaims(), nil
}

func (v *Verifier) publicKey(ctx context.Context, token *jwt.Token) (any, error) {
	kid, ok := token.Header["kid"].(string)
	if !ok || kid == "" {
		return nil, fmt.Errorf("token header missing kid")
	}

	set, err := v.keySet(ctx)
	if err != nil {
		return nil, err
	}

	key, found := set.LookupKeyID(kid)
	if !found {
		return nil, fmt.Errorf("key ID %s not found in JWKS", kid)
	}

	var rawKey any
	if err := jwk.Export(key, &rawKey); err != nil {
		return nil, fmt.Errorf("failed to export raw key: %w", err)
	}
	pub, ok := rawKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("key ID %s is %T, not an RSA public key", kid, rawKey)
	}
	return pub, nil
}

type remoteKeySet struct {
	cache   *jwk.Cache
	url     string
	timeout time.Duration

	mu         sync.Mutex
	registered bool
}

func (r *remoteKeySet) lookup(ctx context.Context) (jwk.Set, error) {
	if err := r.ensureRegistered(ctx); err != nil {
		return nil, err
	}
	set, err := r.cache.Lookup(ctx, r.url)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup JWKS: %w", err)
	}
	return set, nil
}

// ensureRegistered registers the URL with the cache. A failed registration is dropped
// from the cache and attempted again on the next call, so an outage of the JWKS
// endpoint only fails the calls made while it lasts.
func (r *remoteKeySet) ensureRegistered(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.registered {
		return nil
	}

	registrationCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.cache.Register(registrationCtx, r.url); err != nil {
		if r.cache.IsRegistered(ctx, r.url) {
			_ = r.cache.Unregister(ctx, r.url)
		}
		return fmt.Errorf("failed to register JWKS URL: %w", err)
	}
	r.registered = true
	return nil
}
