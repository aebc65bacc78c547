package domain

// TokenTypeBearer is the token_type of every access token response.
const TokenTypeBearer = "bearer"

// RegisterInput contains the data for a self-service registration.
type RegisterInput struct {
	Email    string
	Password string
}

// LoginInput contains the credentials of a login attempt.
type LoginInput struct {
	Email    string
	Password string
}

// AuthOutput is the result of a successful registration or login.
type AuthOutput struct {
	User        *User
	AccessToken string
	TokenType   string
	// ExpiresIn is the token lifetime in seconds.
	ExpiresIn int64
}
