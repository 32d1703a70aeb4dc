package errors

import (
	"errors"
	"fmt"
)

// Common error types for the auth gateway
var (
	// Proxy errors
	ErrProxy          = errors.New("proxy error")
	ErrUnreadableBody = errors.New("unreadable body")

	// Configuration errors
	ErrAuthConfig = errors.New("client credentials not configured")

	// Federation errors
	ErrStateValidation  = errors.New("state validation failed")
	ErrExternalExchange = errors.New("external token exchange failed")
	ErrExternalProfile  = errors.New("external profile fetch failed")

	// Backend errors
	ErrRegistration  = errors.New("backend registration failed")
	ErrTokenIssuance = errors.New("backend token issuance failed")
	ErrUserCheck     = errors.New("backend user check failed")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
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
