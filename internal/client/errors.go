package client

import (
	"errors"
	"fmt"
)

// Distinguished conditions the dashboard reacts to instead of failing.
var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoActiveSession    = errors.New("no active mining session")
	ErrSessionNotMatured  = errors.New("mining session not matured")
	ErrNotAuthenticated   = errors.New("not authenticated")
)

// APIError is any server rejection that is not one of the distinguished
// conditions above.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// translate maps the server's distinguished error strings to sentinel errors
// so callers can branch with errors.Is.
func translate(status int, message string) error {
	switch message {
	case "PROFILE_NOT_FOUND":
		return ErrProfileNotFound
	case "EMAIL_NOT_CONFIRMED":
		return ErrEmailNotConfirmed
	case "INVALID_CREDENTIALS":
		return ErrInvalidCredentials
	case "NO_ACTIVE_SESSION":
		return ErrNoActiveSession
	case "SESSION_NOT_MATURED":
		return ErrSessionNotMatured
	}
	return &APIError{Status: status, Message: message}
}
