package errors

import (
	"errors"
	"fmt"
)

// Common error types for the to-do client
var (
	// Authorization errors
	ErrMissingRolesClaim = errors.New("token does not have roles claim")
	ErrRoleNotAssigned   = errors.New("expected role is missing")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// Sign-in flow errors
	ErrInvalidState   = errors.New("invalid state")
	ErrInvalidNonce   = errors.New("invalid nonce")
	ErrMissingIDToken = errors.New("no id_token in token response")
	ErrInvalidIDToken = errors.New("invalid id token")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
