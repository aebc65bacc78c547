// Package errors holds the service-wide error vocabulary. Use cases return these
// sentinels (usually wrapped with context) and the HTTP layer maps them to status codes.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every domain package.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., duplicate email).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates missing or rejected credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the principal is known but not allowed to proceed.
	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable indicates a dependency the request needs is not ready.
	ErrUnavailable = errors.New("unavailable")
)

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Wrap prefixes err with message and keeps it in the chain. Returns nil for a nil err.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
