package dto

import "time"

// TokenResponse is returned by register and login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// MeResponse describes the caller as seen through their access token.
type MeResponse struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
