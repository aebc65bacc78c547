// Package http provides the gin handlers and middleware for account authentication.
package http

import (
	"context"

	keysDomain "github.com/allisson/identity/internal/keys/domain"
)

// claimsKey is a context key type for storing verified token claims.
type claimsKey struct{}

// WithClaims stores verified token claims in the context.
func WithClaims(ctx context.Context, claims *keysDomain.TokenClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// GetClaims retrieves verified token claims from the context.
// Returns (claims, true) if present, or (nil, false) if the request was not authenticated.
func GetClaims(ctx context.Context) (*keysDomain.TokenClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*keysDomain.TokenClaims)
	return claims, ok
}
