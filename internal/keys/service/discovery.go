package service

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/allisson/identity/internal/keys/domain"
)

// BuildDiscoveryDocument renders pub as a single-key JWKS. Modulus and exponent are
// minimal big-endian bytes in unpadded base64url, so equal inputs give equal output.
func BuildDiscoveryDocument(pub *rsa.PublicKey, keyID string) (*domain.DiscoveryDocument, error) {
	if pub == nil || pub.N == nil || strings.TrimSpace(keyID) == "" {
		return nil, domain.ErrKeysNotInitialized
	}

	return &domain.DiscoveryDocument{
		Keys: []domain.JSONWebKey{
			{
				Kty: "RSA",
				Alg: domain.SigningAlgorithm,
				Use: "sig",
				Kid: keyID,
				N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	}, nil
}

// DiscoveryPublisher serves the JWKS of the process keypair. The document and its
// JSON encoding are computed once at construction.
type DiscoveryPublisher struct {
	doc   *domain.DiscoveryDocument
	body  []byte
	keyID string
}

// NewDiscoveryPublisher builds and caches the discovery document for keys.
func NewDiscoveryPublisher(keys *domain.Keypair) (*DiscoveryPublisher, error) {
	if !keys.CanPublish() {
		return nil, domain.ErrKeysNotInitialized
	}

	doc, err := BuildDiscoveryDocument(keys.PublicKey, keys.KeyID)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode discovery document: %w", err)
	}

	return &DiscoveryPublisher{doc: doc, body: body, keyID: keys.KeyID}, nil
}

// Document returns a copy of the cached discovery document.
func (p *DiscoveryPublisher) Document() *domain.DiscoveryDocument {
	return &domain.DiscoveryDocument{Keys: slices.Clone(p.doc.Keys)}
}

// JSON returns the cached JSON encoding of the discovery document.
func (p *DiscoveryPublisher) JSON() []byte {
	return slices.Clone(p.body)
}

// KeyID returns the kid of the published key.
func (p *DiscoveryPublisher) KeyID() string {
	return p.keyID
}
