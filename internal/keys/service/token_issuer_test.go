package service

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/identity/internal/errors"
	"github.com/allisson/identity/internal/keys/domain"
)

var (
	fixtureOnce sync.Once
	fixtureKeys *domain.Keypair
	fixtureErr  error
)

// newTestKeypair returns a keypair shared by the tests of this package.
func newTestKeypair(t *testing.T) *domain.Keypair {
	t.Helper()
	fixtureOnce.Do(func() {
		var privateKey *rsa.PrivateKey
		privateKey, fixtureErr = rsa.GenerateKey(rand.Reader, domain.MinKeyBits)
		if fixtureErr != nil {
			return
		}
		fixtureKeys = &domain.Keypair{
			PrivateKey: privateKey,
			PublicKey:  &privateKey.PublicKey,
			KeyID:      uuid.NewString(),
		}
	})
	require.NoError(t, fixtureErr)
	return fixtureKeys
}

func decodeSegment(t *testing.T, token string, index int) map[string]any {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	raw, err := base64.RawURLEncoding.DecodeString(parts[index])
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestIssueToken(t *testing.T) {
	keys := newTestKeypair(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ttl := 15 * time.Minute

	t.Run("round trips through an RS256 verifier", func(t *testing.T) {
		token, err := IssueToken("user-123", "john@example.com", []string{"admin"}, keys.PrivateKey, keys.KeyID, ttl, now)
		require.NoError(t, err)

		claims := &domain.AccessTokenClaims{}
		parsed, err := jwt.ParseWithClaims(
			token,
			claims,
			func(*jwt.Token) (any, error) { return keys.PublicKey, nil },
			jwt.WithValidMethods([]string{"RS256"}),
			jwt.WithTimeFunc(func() time.Time { return now }),
		)
		require.NoError(t, err)
		assert.True(t, parsed.Valid)

		assert.Equal(t, keys.KeyID, parsed.Header["kid"])
		assert.Equal(t, "RS256", parsed.Header["alg"])
		assert.Equal(t, "JWT", parsed.Header["typ"])
		assert.Equal(t, "user-123", claims.Subject)
		assert.Equal(t, "john@example.com", claims.Email)
		assert.Equal(t, []string{"admin"}, claims.Roles)
		assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
		assert.Equal(t, int64(ttl.Seconds()), claims.ExpiresAt.Unix()-claims.IssuedAt.Unix())
	})

	t.Run("payload has exactly the identity claims", func(t *testing.T) {
		token, err := IssueToken("user-123", "john@example.com", nil, keys.PrivateKey, keys.KeyID, ttl, now)
		require.NoError(t, err)

		payload := decodeSegment(t, token, 1)
		assert.Len(t, payload, 5)
		assert.Equal(t, "user-123", payload["sub"])
		assert.Equal(t, "john@example.com", payload["email"])
		assert.Equal(t, []any{}, payload["roles"])
		assert.EqualValues(t, now.Unix(), payload["iat"])
		assert.EqualValues(t, now.Add(ttl).Unix(), payload["exp"])
	})

	t.Run("sub-second time is truncated", func(t *testing.T) {
		token, err := IssueToken("u", "u@example.com", nil, keys.PrivateKey, keys.KeyID, time.Minute, now.Add(900*time.Millisecond))
		require.NoError(t, err)

		payload := decodeSegment(t, token, 1)
		assert.EqualValues(t, now.Unix(), payload["iat"])
		assert.EqualValues(t, now.Unix()+60, payload["exp"])
	})

	t.Run("tokens issued one second apart differ", func(t *testing.T) {
		first, err := IssueToken("u", "u@example.com", nil, keys.PrivateKey, keys.KeyID, ttl, now)
		require.NoError(t, err)
		second, err := IssueToken("u", "u@example.com", nil, keys.PrivateKey, keys.KeyID, ttl, now.Add(time.Second))
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("caller roles are not aliased", func(t *testing.T) {
		roles := []string{"reader"}
		token, err := IssueToken("u", "u@example.com", roles, keys.PrivateKey, keys.KeyID, ttl, now)
		require.NoError(t, err)
		roles[0] = "admin"

		payload := decodeSegment(t, token, 1)
		assert.Equal(t, []any{"reader"}, payload["roles"])
	})

	t.Run("missing key material", func(t *testing.T) {
		_, err := IssueToken("u", "u@example.com", nil, nil, keys.KeyID, ttl, now)
		assert.ErrorIs(t, err, domain.ErrKeysNotInitialized)

		_, err = IssueToken("u", "u@example.com", nil, keys.PrivateKey, "", ttl, now)
		assert.ErrorIs(t, err, domain.ErrKeysNotInitialized)
	})

	t.Run("ttl must be whole positive seconds", func(t *testing.T) {
		_, err := IssueToken("u", "u@example.com", nil, keys.PrivateKey, keys.KeyID, 1500*time.Millisecond, now)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

		_, err = IssueToken("u", "u@example.com", nil, keys.PrivateKey, keys.KeyID, -time.Minute, now)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestNewTokenIssuer(t *testing.T) {
	keys := newTestKeypair(t)

	t.Run("defaults to fifteen minutes", func(t *testing.T) {
		issuer, err := NewTokenIssuer(keys, 0)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultAccessTokenTTL, issuer.TTL())
		assert.Equal(t, keys.KeyID, issuer.KeyID())
	})

	t.Run("rejects missing keys", func(t *testing.T) {
		_, err := NewTokenIssuer(nil, time.Minute)
		assert.ErrorIs(t, err, domain.ErrKeysNotInitialized)

		_, err = NewTokenIssuer(&domain.Keypair{PrivateKey: keys.PrivateKey}, time.Minute)
		assert.ErrorIs(t, err, domain.ErrKeysNotInitialized)
	})

	t.Run("rejects fractional ttl", func(t *testing.T) {
		_, err := NewTokenIssuer(keys, 2500*time.Millisecond)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestTokenIssuer_Parse(t *testing.T) {
	keys := newTestKeypair(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	issuer, err := NewTokenIssuer(keys, time.Minute)
	require.NoError(t, err)
	issuer.now = func() time.Time { return now }

	t.Run("accepts own tokens", func(t *testing.T) {
		token, err := issuer.Issue("user-1", "a@example.com", []string{"admin"})
		require.NoError(t, err)

		claims, err := issuer.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.Subject)
		assert.Equal(t, "a@example.com", claims.Email)
		assert.Equal(t, []string{"admin"}, claims.Roles)
		assert.True(t, now.Equal(claims.IssuedAt))
		assert.True(t, now.Add(time.Minute).Equal(claims.ExpiresAt))
	})

	t.Run("rejects expired tokens", func(t *testing.T) {
		token, err := issuer.Issue("user-1", "a@example.com", nil)
		require.NoError(t, err)

		later := *issuer
		later.now = func() time.Time { return now.Add(2 * time.Minute) }
		_, err = later.Parse(token)
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("rejects tokens signed by another key", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, domain.MinKeyBits)
		require.NoError(t, err)
		token, err := IssueToken("user-1", "a@example.com", nil, other, keys.KeyID, time.Minute, now)
		require.NoError(t, err)

		_, err = issuer.Parse(token)
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("rejects unknown kid", func(t *testing.T) {
		token, err := IssueToken("user-1", "a@example.com", nil, keys.PrivateKey, "other-kid", time.Minute, now)
		require.NoError(t, err)

		_, err = issuer.Parse(token)
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("rejects HMAC tokens", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		})
		token.Header["kid"] = keys.KeyID
		signed, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = issuer.Parse(signed)
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := issuer.Parse("not.a.token")
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})
}
