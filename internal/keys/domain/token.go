package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the decoded payload of an access token.
type TokenClaims struct {
	Subject   string
	Email     string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AccessTokenClaims is the JWT payload: {"sub","email","roles","iat","exp"}.
type AccessTokenClaims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// ToTokenClaims converts the wire claims into the domain representation.
func (c *AccessTokenClaims) ToTokenClaims() *TokenClaims {
	claims := &TokenClaims{
		Subject: c.Subject,
		Email:   c.Email,
		Roles:   c.Roles,
	}
	if claims.Roles == nil {
		claims.Roles = []string{}
	}
	if c.IssuedAt != nil {
		claims.IssuedAt = c.IssuedAt.Time.UTC()
	}
	if c.ExpiresAt != nil {
		claims.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return claims
}
