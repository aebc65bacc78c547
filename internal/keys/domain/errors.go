package domain

import (
	"github.com/allisson/identity/internal/errors"
)

// Key lifecycle and token errors.
var (
	// ErrStorage indicates the keys directory or one of its files could not be read or written.
	ErrStorage = errors.New("key storage failure")

	// ErrKeyFormat indicates persisted key material exists but cannot be parsed.
	ErrKeyFormat = errors.New("invalid key material")

	// ErrKeysNotInitialized indicates a signing or publishing call received no key material.
	ErrKeysNotInitialized = errors.Wrap(errors.ErrUnavailable, "signing keys not initialized")

	// ErrSigning indicates the JWT library failed to produce a signature.
	ErrSigning = errors.New("token signing failed")

	// ErrInvalidToken indicates a token failed signature, algorithm, kid or expiry checks.
	ErrInvalidToken = errors.Wrap(errors.ErrUnauthorized, "invalid token")
)
