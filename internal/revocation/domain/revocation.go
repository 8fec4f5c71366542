package domain

import "time"

// RevokedAccessToken marks one access token, identified by its jti, as no longer accepted.
type RevokedAccessToken struct {
	UserID    string
	TokenJTI  string
	Reason    string
	RevokedAt time.Time
}
