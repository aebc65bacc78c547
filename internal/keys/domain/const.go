// Package domain defines the signing key material, token claims and discovery
// document shared by the key store, the token issuer and every verifier.
package domain

import "time"

const (
	// MinKeyBits is the smallest RSA modulus accepted for signing keys.
	MinKeyBits = 2048

	// PublicExponent is the RSA public exponent of generated keys.
	PublicExponent = 65537

	// DefaultAccessTokenTTL is the lifetime of an access token when none is configured.
	DefaultAccessTokenTTL = 15 * time.Minute

	// SigningAlgorithm is the JWS algorithm of every issued token.
	SigningAlgorithm = "RS256"
)

// Artifact file names inside the keys directory.
const (
	PrivateKeyFile = "jwt_private.pem"
	PublicKeyFile  = "jwt_public.pem"
	KeyIDFile      = "kid.txt"
	// LockFile is created only when a keypair has to be generated.
	LockFile       = ".keystore.lock"
)
