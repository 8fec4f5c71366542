package domain

import "time"

// SecurityEvent is one entry of the security log: a login, a logout, a lockout, a revocation.
// The JSON form is what the Kafka producer writes and the worker forwards to Loki.
type SecurityEvent struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id,omitempty"`
	Action    string         `json:"action"`
	Reason    string         `json:"reason,omitempty"`
	IP        string         `json:"ip,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
