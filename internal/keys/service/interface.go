// Package service provisions the signing keypair, issues access tokens bound to it
// and publishes its public half as a JWKS discovery document.
//
// Provisioning runs once at startup; issuance and publishing only read the
// resulting immutable keypair.
package service

import (
	"context"
	"time"

	"github.com/allisson/identity/internal/keys/domain"
)

// KeyStore provisions the authoritative signing keypair.
type KeyStore interface {
	// EnsureKeypair loads the persisted keypair or generates and persists one when
	// none exists yet. Repeated calls return the same key id.
	EnsureKeypair(ctx context.Context) (*domain.Keypair, error)
}

// Issuer issues and verifies access tokens.
type Issuer interface {
	Issue(subject, email string, roles []string) (string, error)
	Parse(token string) (*domain.TokenClaims, error)
	TTL() time.Duration
}

// Publisher exposes the discovery document of the signing key.
type Publisher interface {
	Document() *domain.DiscoveryDocument
	JSON() []byte
	KeyID() string
}

var (
	_ KeyStore  = (*FileKeyStore)(nil)
	_ Issuer    = (*TokenIssuer)(nil)
	_ Publisher = (*DiscoveryPublisher)(nil)
)
