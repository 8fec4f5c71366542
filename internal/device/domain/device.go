package domain

import "time"

// DeviceSession is one signed-in client of a user. It is opened at login and closed at
// logout or when an operator terminates every session of the user.
type DeviceSession struct {
	ID     string
	UserID string
	// SessionID is the opaque identifier returned to the client at login.
	SessionID  string
	DeviceInfo string
	IPAddress  string
	IsActive   bool
	CreatedAt  time.Time
	EndedAt    *time.Time
}
