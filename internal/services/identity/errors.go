package identity

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrInvalidCredentials is returned when the email or password does not match
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailNotVerified is returned when a user logs in before verifying their email
	ErrEmailNotVerified = errors.New("email address has not been verified")
	// ErrEmailTaken is returned when registering an email that already has an account
	ErrEmailTaken = errors.New("an account with this email already exists")
	// ErrInvalidCode is returned for a wrong, expired or already used code
	ErrInvalidCode = errors.New("invalid or expired code")
	// ErrInvalidToken is returned when an access token fails verification
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrUserNotFound is returned when a token refers to a deleted account
	ErrUserNotFound = errors.New("user not found")
)

// ValidationError reports invalid request fields
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
