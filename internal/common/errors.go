// Package common defines shared constants and sentinel errors used across
// the client core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorUnavailable  = errors.New("server not available")

	// Session errors.
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrPinNotSet        = errors.New("pin not set")
	ErrInvalidPin       = errors.New("invalid pin")
	ErrPinFormat        = errors.New("pin must be 4 to 8 digits")
	ErrRefreshRejected  = errors.New("refresh token rejected")
	ErrNoRefreshToken   = errors.New("no refresh token")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrSessionLocked    = errors.New("session locked")
	ErrMissingStoreKey  = errors.New("store key unavailable")
	ErrCorruptedStorage = errors.New("corrupted secure storage value")

	// Time tracking errors.
	ErrActiveEntryExists = errors.New("an active time entry already exists")
	ErrNoActiveEntry     = errors.New("no active time entry")
)

// PublicMessage maps an error to the text shown to the user. Internal
// details stay in logs and error reports.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrorUnavailable):
		return "Server not available. Changes are saved on this device."
	case errors.Is(err, ErrorUnauthorized), errors.Is(err, ErrRefreshRejected):
		return "Your session has ended. Please sign in again."
	case errors.Is(err, ErrInvalidPin):
		return "Incorrect PIN."
	case errors.Is(err, ErrPinFormat):
		return ErrPinFormat.Error()
	case errors.Is(err, ErrActiveEntryExists):
		return "A timer is already running."
	case errors.Is(err, ErrNoActiveEntry):
		return "No timer is running."
	case errors.Is(err, ErrorNotFound):
		return "Not found."
	case errors.Is(err, ErrNotLoggedIn):
		return "Please sign in."
	default:
		return "Server not available."
	}
}
