package securestore

import "time"

// State is the session snapshot the gate works from.
type State struct {
	IsLoggedIn bool
	HasPin     bool
	// TokenExpiresAt is zero when no expiry is known.
	TokenExpiresAt    time.Time
	PinUnlockRequired bool
}

// IsTokenExpired is true when the expiry is unknown or already reached.
func (s State) IsTokenExpired(now time.Time) bool {
	return s.TokenExpiresAt.IsZero() || !now.Before(s.TokenExpiresAt)
}

// NeedsPinSetup reports a signed-in user without a PIN.
func (s State) NeedsPinSetup() bool {
	return s.IsLoggedIn && !s.HasPin
}

// RequiresPinUnlock reports whether the PIN unlock screen must be shown at
// now.
func (s State) RequiresPinUnlock(now time.Time) bool {
	return s.IsLoggedIn && s.HasPin && (s.PinUnlockRequired || s.IsTokenExpired(now))
}
