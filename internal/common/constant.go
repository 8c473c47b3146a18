// Package common contains shared constants and sentinel errors used across
// fieldmate components.
package common

// Header names sent to the job-management backend on every request.
const (
	APIKeyHeaderName        = "apikey"
	AuthorizationHeaderName = "Authorization"
	BearerPrefix            = "Bearer "
)

// DefaultQueueCap bounds the number of pending location fixes kept on disk.
const DefaultQueueCap = 5000
