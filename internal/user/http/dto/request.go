// Package dto provides data transfer objects for the user HTTP layer.
package dto

import (
	validation "github.com/jellydator/validation"

	appValidation "github.com/allisson/identity/internal/validation"
)

// RegisterRequest is the body of POST /v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the request shape. Password strength is enforced by the use case.
func (r *RegisterRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email,
			validation.Required.Error("email is required"),
			appValidation.NotBlank,
			appValidation.Email,
			validation.Length(5, 255).Error("email must be between 5 and 255 characters"),
		),
		validation.Field(&r.Password,
			validation.Required.Error("password is required"),
			validation.Length(1, 128).Error("password must be at most 128 characters"),
		),
	)
}

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks that both credentials are present.
func (r *LoginRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email,
			validation.Required.Error("email is required"),
			appValidation.NotBlank,
		),
		validation.Field(&r.Password,
			validation.Required.Error("password is required"),
		),
	)
}
