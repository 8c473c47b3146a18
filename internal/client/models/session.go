package models

import "time"

// Credentials is the authenticated session returned by login or refresh.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	Email        string
	// ExpiresAt is the access token expiry in epoch seconds; zero means
	// unknown.
	ExpiresAt int64
}

// ExpiryTime converts ExpiresAt to a time.Time.
func (c Credentials) ExpiryTime() time.Time {
	if c.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(c.ExpiresAt, 0)
}

// BusinessProfile carries the employer settings the client needs offline.
type BusinessProfile struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	DisplayName   string        `json:"display_name,omitempty"`
	BusinessHours BusinessHours `json:"business_hours"`
}
