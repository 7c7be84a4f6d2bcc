package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationRequired means a credential is mandatory but none was presented.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrInvalidCredential means the credential matches no user or configured secret.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrAuthNotConfigured means legacy authentication is on but no secret is configured.
	ErrAuthNotConfigured = errors.New("authentication not configured")
	// ErrValidation marks rejected input to a store mutation.
	ErrValidation = errors.New("validation failed")
	// ErrStoreIO marks a failure to durably write the store file.
	ErrStoreIO = errors.New("credential store write failed")
)

// Reason says why a credential was rejected.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonAuthenticationRequired
	ReasonInvalidCredential
	ReasonNotConfigured
)

func (r Reason) String() string {
	switch r {
	case ReasonAuthenticationRequired:
		return "authentication required"
	case ReasonInvalidCredential:
		return "invalid credential"
	case ReasonNotConfigured:
		return "authentication not configured"
	default:
		return "none"
	}
}

// sentinel maps a reason onto the error callers match with errors.Is.
func (r Reason) sentinel() error {
	switch r {
	case ReasonAuthenticationRequired:
		return ErrAuthenticationRequired
	case ReasonInvalidCredential:
		return ErrInvalidCredential
	case ReasonNotConfigured:
		return ErrAuthNotConfigured
	default:
		return nil
	}
}

// AuthError is returned when authentication is required but cannot be satisfied.
// It never carries the presented credential.
type AuthError struct {
	Reason Reason
}

func (e *AuthError) Error() string {
	return e.Reason.String()
}

func (e *AuthError) Unwrap() error {
	return e.Reason.sentinel()
}

// ValidationError describes rejected input to a store mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func validationErr(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
