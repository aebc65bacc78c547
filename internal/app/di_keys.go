package app

import (
	"context"
	"fmt"

	keysDomain "github.com/allisson/identity/internal/keys/domain"
	keysHTTP "github.com/allisson/identity/internal/keys/http"
	keysService "github.com/allisson/identity/internal/keys/service"
	"github.com/allisson/identity/internal/metrics"
)

// KeyStore returns the file-backed store of the signing keypair.
func (c *Container) KeyStore() (*keysService.FileKeyStore, error) {
	var err error
	c.keyStoreInit.Do(func() {
		c.keyStore, err = keysService.NewFileKeyStore(
			c.config.JWTKeysDir,
			c.config.JWTKeyBits,
			c.config.JWTKeysLockTimeout,
			c.Logger(),
		)
		if err != nil {
			c.initErrors["keyStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyStore"]; exists {
		return nil, storedErr
	}
	return c.keyStore, nil
}

// Keypair provisions the signing keypair on first access and returns the same pair afterwards.
func (c *Container) Keypair(ctx context.Context) (*keysDomain.Keypair, error) {
	var err error
	c.keypairInit.Do(func() {
		c.keypair, err = c.initKeypair(ctx)
		if err != nil {
			c.initErrors["keypair"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keypair"]; exists {
		return nil, storedErr
	}
	return c.keypair, nil
}

// TokenIssuer returns the access token issuer bound to the signing keypair.
func (c *Container) TokenIssuer(ctx context.Context) (*keysService.TokenIssuer, error) {
	var err error
	c.tokenIssuerInit.Do(func() {
		c.tokenIssuer, err = c.initTokenIssuer(ctx)
		if err != nil {
			c.initErrors["tokenIssuer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenIssuer"]; exists {
		return nil, storedErr
	}
	return c.tokenIssuer, nil
}

// JWKSPublisher returns the cached discovery document of the signing key.
func (c *Container) JWKSPublisher(ctx context.Context) (*keysService.DiscoveryPublisher, error) {
	var err error
	c.jwksPublisherInit.Do(func() {
		c.jwksPublisher, err = c.initJWKSPublisher(ctx)
		if err != nil {
			c.initErrors["jwksPublisher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["jwksPublisher"]; exists {
		return nil, storedErr
	}
	return c.jwksPublisher, nil
}

// JWKSHandler returns the HTTP handler serving /.well-known/jwks.json.
func (c *Container) JWKSHandler(ctx context.Context) (*keysHTTP.JWKSHandler, error) {
	var err error
	c.jwksHandlerInit.Do(func() {
		var publisher *keysService.DiscoveryPublisher
		publisher, err = c.JWKSPublisher(ctx)
		if err != nil {
			err = fmt.Errorf("failed to get jwks publisher for jwks handler: %w", err)
			c.initErrors["jwksHandler"] = err
			return
		}
		c.jwksHandler = keysHTTP.NewJWKSHandler(publisher)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["jwksHandler"]; exists {
		return nil, storedErr
	}
	return c.jwksHandler, nil
}

func (c *Container) initKeypair(ctx context.Context) (*keysDomain.Keypair, error) {
	store, err := c.KeyStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get key store: %w", err)
	}

	keys, err := store.EnsureKeypair(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to provision signing keys: %w", err)
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for signing key info: %w", err)
	}
	if provider != nil {
		err := metrics.RegisterSigningKeyInfo(
			provider.MeterProvider(),
			c.config.MetricsNamespace,
			keys.KeyID,
			keysDomain.SigningAlgorithm,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to register signing key info: %w", err)
		}
	}

	return keys, nil
}

func (c *Container) initTokenIssuer(ctx context.Context) (*keysService.TokenIssuer, error) {
	keys, err := c.Keypair(ctx)
	if err != nil {
		return nil, err
	}

	issuer, err := keysService.NewTokenIssuer(keys, c.config.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}
	return issuer, nil
}

func (c *Container) initJWKSPublisher(ctx context.Context) (*keysService.DiscoveryPublisher, error) {
	keys, err := c.Keypair(ctx)
	if err != nil {
		return nil, err
	}

	publisher, err := keysService.NewDiscoveryPublisher(keys)
	if err != nil {
		return nil, fmt.Errorf("failed to create jwks publisher: %w", err)
	}
	return publisher, nil
}
