package domain

import "time"

// Session is the server-side record of an issued refresh token. The token itself is
// never stored; TokenHash is its SHA-256.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	// DeviceSessionID links the refresh token to the device session opened at the same login.
	DeviceSessionID string
	ExpiresAt       time.Time
	IsRevoked       bool
	RevokedAt       *time.Time
	CreatedAt       time.Time
}

// Expired reports whether the session is no longer usable at now. A session is usable
// only while expires_at is strictly after now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
