package dto

import (
	keysDomain "github.com/allisson/identity/internal/keys/domain"
	"github.com/allisson/identity/internal/user/domain"
)

// ToRegisterInput converts a RegisterRequest to the use case input.
func ToRegisterInput(req RegisterRequest) domain.RegisterInput {
	return domain.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
	}
}

// ToLoginInput converts a LoginRequest to the use case input.
func ToLoginInput(req LoginRequest) domain.LoginInput {
	return domain.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}
}

// ToTokenResponse maps an authentication result to the public token body.
// The user record never leaves the service through this response.
func ToTokenResponse(output *domain.AuthOutput) TokenResponse {
	return TokenResponse{
		AccessToken: output.AccessToken,
		TokenType:   output.TokenType,
		ExpiresIn:   output.ExpiresIn,
	}
}

// ToMeResponse maps verified token claims to the response body.
func ToMeResponse(claims *keysDomain.TokenClaims) MeResponse {
	roles := claims.Roles
	if roles == nil {
		roles = []string{}
	}
	return MeResponse{
		Subject:   claims.Subject,
		Email:     claims.Email,
		Roles:     roles,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	}
}
