package service

import (
	"crypto/rsa"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/allisson/identity/internal/errors"
	"github.com/allisson/identity/internal/keys/domain"
)

// IssueToken signs an RS256 access token for subject with the given key. The token
// header carries keyID so verifiers can pick the matching key from the JWKS.
// iat is now truncated to whole seconds and exp is exactly iat+ttl.
func IssueToken(
	subject, email string,
	roles []string,
	signingKey *rsa.PrivateKey,
	keyID string,
	ttl time.Duration,
	now time.Time,
) (string, error) {
	if signingKey == nil || strings.TrimSpace(keyID) == "" {
		return "", domain.ErrKeysNotInitialized
	}
	if err := validateTTL(ttl); err != nil {
		return "", err
	}

	issuedAt := now.UTC().Truncate(time.Second)
	claims := domain.AccessTokenClaims{
		Email: email,
		Roles: slices.Clone(roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	if claims.Roles == nil {
		claims.Roles = []string{}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyID

	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSigning, err)
	}
	return signed, nil
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 || ttl%time.Second != 0 {
		return apperrors.Wrapf(
			apperrors.ErrInvalidInput,
			"token ttl %v must be a positive whole number of seconds",
			ttl,
		)
	}
	return nil
}

// TokenIssuer issues and parses access tokens bound to one immutable keypair.
// It holds no mutable state and is safe for concurrent use.
type TokenIssuer struct {
	keys *domain.Keypair
	ttl  time.Duration
	now  func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. A zero ttl selects the 15 minute default.
func NewTokenIssuer(keys *domain.Keypair, ttl time.Duration) (*TokenIssuer, error) {
	if !keys.CanSign() {
		return nil, domain.ErrKeysNotInitialized
	}
	if ttl == 0 {
		ttl = domain.DefaultAccessTokenTTL
	}
	if err := validateTTL(ttl); err != nil {
		return nil, err
	}
	return &TokenIssuer{keys: keys, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for the given identity using the current time.
func (t *TokenIssuer) Issue(subject, email string, roles []string) (string, error) {
	return IssueToken(subject, email, roles, t.keys.PrivateKey, t.keys.KeyID, t.ttl, t.now())
}

// TTL returns the lifetime of issued tokens.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// KeyID returns the kid stamped on issued tokens.
func (t *TokenIssuer) KeyID() string {
	return t.keys.KeyID
}

// Parse verifies a token against the issuer's own public key and returns its claims.
func (t *TokenIssuer) Parse(tokenString string) (*domain.TokenClaims, error) {
	publicKey := t.keys.PublicKey
	if publicKey == nil {
		publicKey = &t.keys.PrivateKey.PublicKey
	}

	claims := &domain.AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (any, error) {
			kid, _ := token.Header["kid"].(string)
			if kid != t.keys.KeyID {
				return nil, fmt.Errorf("unknown kid %q", kid)
			}
			return publicKey, nil
		},
		jwt.WithValidMethods([]string{domain.SigningAlgorithm}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}
	return claims.ToTokenClaims(), nil
}
