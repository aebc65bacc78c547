// Package domain defines the user account entity and its error vocabulary.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/identity/internal/errors"
)

// EventUserRegistered is the outbox event type emitted after a successful registration.
const EventUserRegistered = "user.registered"

// User represents an account that can authenticate and receive access tokens.
type User struct {
	ID        uuid.UUID
	Email     string
	Password  string
	IsActive  bool
	Roles     []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoleList returns the user's roles, never nil.
func (u *User) RoleList() []string {
	if u.Roles == nil {
		return []string{}
	}
	return u.Roles
}

// Domain-specific errors for user operations.
var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.Wrap(errors.ErrNotFound, "user not found")

	// ErrUserAlreadyExists indicates a user with the same email already exists.
	ErrUserAlreadyExists = errors.Wrap(errors.ErrConflict, "user already exists")

	// ErrInvalidCredentials indicates an unknown email or a wrong password.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid credentials")

	// ErrUserInactive indicates the account exists but has been deactivated.
	ErrUserInactive = errors.Wrap(errors.ErrForbidden, "user is inactive")

	// ErrTokenIssuance indicates credentials were accepted but no token could be signed.
	ErrTokenIssuance = errors.Wrap(errors.ErrUnauthorized, "could not issue access token")
)
